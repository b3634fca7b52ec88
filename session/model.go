package session

import "maps"

// Session is a point-in-time view of the client authentication state.
type Session struct {
	Token      string
	Profile    map[string]any
	Menu       []MenuNode
	MenuLoaded bool
}

// LoggedIn reports whether the session carries a credential.
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// MenuNode describes one entry of the authorization menu. Name doubles as the
// route name registered for the node.
type MenuNode struct {
	ID         int64      `json:"id,omitempty"`
	ParentID   int64      `json:"parentId,omitempty"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Component  string     `json:"component,omitempty"`
	Title      string     `json:"title,omitempty"`
	Icon       string     `json:"icon,omitempty"`
	Sort       int        `json:"sort,omitempty"`
	Hidden     bool       `json:"hidden,omitempty"`
	Permission string     `json:"permission,omitempty"`
	Children   []MenuNode `json:"children,omitempty"`
}

// Credentials is the login form payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Walk calls fn for every node in menu, depth first, parents before children.
func Walk(menu []MenuNode, fn func(MenuNode)) {
	for _, node := range menu {
		fn(node)
		Walk(node.Children, fn)
	}
}

func emptySession() Session {
	return Session{
		Profile: map[string]any{},
		Menu:    []MenuNode{},
	}
}

func (s Session) clone() Session {
	out := Session{
		Token:      s.Token,
		Profile:    maps.Clone(s.Profile),
		Menu:       cloneMenu(s.Menu),
		MenuLoaded: s.MenuLoaded,
	}
	if out.Profile == nil {
		out.Profile = map[string]any{}
	}
	return out
}

func cloneMenu(menu []MenuNode) []MenuNode {
	if menu == nil {
		return []MenuNode{}
	}
	out := make([]MenuNode, len(menu))
	for i, node := range menu {
		out[i] = node
		if node.Children != nil {
			out[i].Children = cloneMenu(node.Children)
		}
	}
	return out
}

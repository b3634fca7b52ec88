package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/goSession/session"
)

// DefaultLayoutPath is where the layout route is mounted.
const DefaultLayoutPath = "/"

// RegistryOptions configures a [Registry].
type RegistryOptions struct {
	// LayoutRoute is the name of the parent route mounted at LayoutPath.
	// Defaults to session.DefaultLayoutRoute.
	LayoutRoute string
	LayoutPath  string
	// ApplyDelay postpones every registration, modelling a renderer that
	// takes a while to pick up new routes.
	ApplyDelay time.Duration
	Logger     *slog.Logger
}

type route struct {
	name    string
	pattern string
	node    session.MenuNode
}

type table struct {
	mux       *chi.Mux
	byName    map[string]route
	byPattern map[string]string
}

// Registry is a chi-backed route table keyed by route name. Registration is
// additive; a route registered twice keeps its latest pattern.
type Registry struct {
	opts   RegistryOptions
	logger *slog.Logger

	// writeMu orders concurrent registrations.
	writeMu sync.Mutex
	mu      sync.RWMutex
	routes  map[string]route
	current table

	pending sync.WaitGroup
}

var _ session.RouteRegistry = (*Registry)(nil)

// NewRegistry returns a registry with only the layout route visible.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.LayoutRoute == "" {
		opts.LayoutRoute = session.DefaultLayoutRoute
	}
	if opts.LayoutPath == "" {
		opts.LayoutPath = DefaultLayoutPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		opts:   opts,
		logger: logger.With("component", "routes"),
		routes: map[string]route{
			opts.LayoutRoute: {name: opts.LayoutRoute, pattern: opts.LayoutPath},
		},
	}
	r.current = r.build(r.routes)
	return r
}

// RegisterRoutes schedules registration of every named node of menu under the
// layout route and returns immediately.
func (r *Registry) RegisterRoutes(menu []session.MenuNode) {
	added := flatten(menu)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		if r.opts.ApplyDelay > 0 {
			time.Sleep(r.opts.ApplyDelay)
		}
		r.apply(added)
	}()
}

func (r *Registry) apply(added []route) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	next := make(map[string]route, len(r.routes)+len(added))
	for name, rt := range r.routes {
		next[name] = rt
	}
	r.mu.RUnlock()

	for _, rt := range added {
		if rt.name == r.opts.LayoutRoute {
			r.logger.Warn("menu node shadows layout route, skipped", "name", rt.name)
			continue
		}
		next[rt.name] = rt
	}
	built := r.build(next)

	r.mu.Lock()
	r.routes = next
	r.current = built
	r.mu.Unlock()

	r.logger.Debug("routes registered", "added", len(added), "total", len(next))
}

// build creates an immutable mux snapshot, layout first and then by name.
// Patterns chi rejects, or that an earlier route already owns, are logged and
// left out of the snapshot.
func (r *Registry) build(routes map[string]route) table {
	t := table{
		mux:       chi.NewRouter(),
		byName:    make(map[string]route, len(routes)),
		byPattern: make(map[string]string, len(routes)),
	}
	names := make([]string, 0, len(routes))
	for name := range routes {
		if name != r.opts.LayoutRoute {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := routes[r.opts.LayoutRoute]; ok {
		names = slices.Insert(names, 0, r.opts.LayoutRoute)
	}

	for _, name := range names {
		rt := routes[name]
		if owner, dup := t.byPattern[rt.pattern]; dup {
			r.logger.Warn("duplicate route pattern", "pattern", rt.pattern, "name", name, "existing", owner)
			continue
		}
		if err := mount(t.mux, rt); err != nil {
			r.logger.Warn("route rejected", "name", name, "pattern", rt.pattern, "error", err)
			continue
		}
		t.byName[name] = rt
		t.byPattern[rt.pattern] = name
	}
	return t
}

func mount(mux *chi.Mux, rt route) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	name := rt.name
	mux.Get(rt.pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(name))
	})
	return nil
}

func (r *Registry) snapshot() table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// HasRoute reports whether a route named name is visible and its pattern
// resolves in the current mux.
func (r *Registry) HasRoute(name string) bool {
	t := r.snapshot()
	rt, ok := t.byName[name]
	if !ok {
		return false
	}
	return t.mux.Match(chi.NewRouteContext(), http.MethodGet, samplePath(rt.pattern))
}

// Lookup resolves a concrete path to the name of the route serving it.
func (r *Registry) Lookup(p string) (string, bool) {
	t := r.snapshot()
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, p) {
		return "", false
	}
	name, ok := t.byPattern[rctx.RoutePattern()]
	return name, ok
}

// Names returns every visible route name.
func (r *Registry) Names() []string {
	t := r.snapshot()
	out := make([]string, 0, len(t.byName))
	for name := range t.byName {
		out = append(out, name)
	}
	return out
}

// ServeHTTP answers GET requests for visible routes with the route name.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.snapshot().mux.ServeHTTP(w, req)
}

// Wait blocks until every scheduled registration has been applied or ctx is
// done.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func flatten(menu []session.MenuNode) []route {
	var out []route
	var walk func(nodes []session.MenuNode, parent string)
	walk = func(nodes []session.MenuNode, parent string) {
		for _, node := range nodes {
			pattern := joinPattern(parent, node.Path)
			if node.Name != "" && pattern != "" {
				out = append(out, route{name: node.Name, pattern: pattern, node: node})
			}
			walk(node.Children, pattern)
		}
	}
	walk(menu, "/")
	return out
}

// joinPattern resolves p against parent the way nested menu paths are
// written, converting :param segments to chi's {param} form.
func joinPattern(parent, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		if parent == "" {
			parent = "/"
		}
		p = parent + "/" + p
	}
	p = path.Clean(p)

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

// samplePath fills every {param} segment so the pattern can be matched.
func samplePath(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			segments[i] = "x"
		}
	}
	return strings.Join(segments, "/")
}

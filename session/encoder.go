package session

import (
	"encoding/json"
	"fmt"
)

// Durable keys. They match the names the web client used for local storage so
// an exported store can be inspected side by side.
const (
	KeyToken   = "token"
	KeyProfile = "userInfo"
	KeyMenu    = "menus"
)

// DurableKeys lists every key the store writes.
var DurableKeys = []string{KeyToken, KeyProfile, KeyMenu}

func encodeProfile(profile map[string]any) (string, error) {
	if profile == nil {
		profile = map[string]any{}
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	return string(data), nil
}

func decodeProfile(raw string) (map[string]any, error) {
	profile := map[string]any{}
	if raw == "" {
		return profile, nil
	}
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return map[string]any{}, fmt.Errorf("decode profile: %w", err)
	}
	if profile == nil {
		profile = map[string]any{}
	}
	return profile, nil
}

func encodeMenu(menu []MenuNode) (string, error) {
	if menu == nil {
		menu = []MenuNode{}
	}
	data, err := json.Marshal(menu)
	if err != nil {
		return "", fmt.Errorf("encode menu: %w", err)
	}
	return string(data), nil
}

func decodeMenu(raw string) ([]MenuNode, error) {
	if raw == "" {
		return []MenuNode{}, nil
	}
	var menu []MenuNode
	if err := json.Unmarshal([]byte(raw), &menu); err != nil {
		return []MenuNode{}, fmt.Errorf("decode menu: %w", err)
	}
	if menu == nil {
		menu = []MenuNode{}
	}
	return menu, nil
}

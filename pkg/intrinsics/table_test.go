package intrinsics

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		operand, secondary string
		name               string
		arity              int
	}{
		{"0040H", "", "bark", 2},
		{"0040H", "5", "bark", 2},
		{"0027", "", "get_player_name", 1},
		{"0009H", "3", "unknown_0009H", 3},
		{"0009H", "", "unknown_0009H", 0},
		{"0009H", "x", "unknown_0009H", 0},
		{"UI_item_say@2", "", "UI_item_say", 2},
		{"UI_item_say@x", "4", "UI_item_say", 4},
		{"not_a_number", "1", "not_a_number", 1},
	}
	table := Default()
	for _, tt := range tests {
		name, arity := table.Resolve(tt.operand, tt.secondary)
		if name != tt.name || arity != tt.arity {
			t.Errorf("Resolve(%q, %q) = %q, %d; want %q, %d", tt.operand, tt.secondary, name, arity, tt.name, tt.arity)
		}
	}
}

func TestResolveInternal(t *testing.T) {
	if name, arity := ResolveInternal("0401H", "2"); name != "func_0401" || arity != 2 {
		t.Errorf("ResolveInternal = %q, %d", name, arity)
	}
	if name, arity := ResolveInternal("helper@1", ""); name != "helper" || arity != 1 {
		t.Errorf("ResolveInternal symbolic = %q, %d", name, arity)
	}
}

func TestLuaName(t *testing.T) {
	table := Default()
	for in, want := range map[string]string{
		"UI_item_say":  "bark",
		"UI_fade_in":   "fade_in",
		"UI_Get_Thing": "get_thing",
		"plain_callee": "plain_callee",
	} {
		if got := table.LuaName(in); got != want {
			t.Errorf("LuaName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	table := Default()
	if got := table.Describe(0x0040); got != "Display text near object" {
		t.Errorf("Describe(0040) = %q", got)
	}
	if got := table.Describe(0x091B); got != "format_price_string" {
		t.Errorf("Describe(091B) = %q", got)
	}
	if got := table.Describe(0xFFFF); got != "Unknown function" {
		t.Errorf("Describe(FFFF) = %q", got)
	}
}

func writeOverrides(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intrinsics.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOverrides(t *testing.T) {
	path := writeOverrides(t, `intrinsics:
  - opcode: 0009H
    name: set_weather
    description: Change the weather
    args: 1
  - opcode: "0040"
    name: say
    args: 3
ui:
  - name: UI_fade_in
    lua: fade_screen_in
    args: 2
`)
	o, err := LoadOverrides(path)
	if err != nil {
		t.Fatal(err)
	}

	base := Default()
	table := base.WithOverrides(o)

	if name, arity := table.Resolve("0009H", ""); name != "set_weather" || arity != 1 {
		t.Errorf("override not applied: %q, %d", name, arity)
	}
	if name, arity := table.Resolve("0040H", ""); name != "say" || arity != 3 {
		t.Errorf("replacement not applied: %q, %d", name, arity)
	}
	if got := table.LuaName("UI_fade_in"); got != "fade_screen_in" {
		t.Errorf("ui override not applied: %q", got)
	}
	if table.Len() != base.Len()+1 {
		t.Errorf("Len = %d, want %d", table.Len(), base.Len()+1)
	}

	if name, _ := Default().Resolve("0040H", ""); name != "bark" {
		t.Errorf("overrides leaked into the default table: %q", name)
	}
	if _, ok := Default().Lookup(0x0009); ok {
		t.Errorf("overrides added to the default table")
	}
}

func TestOverrideErrors(t *testing.T) {
	tests := map[string]string{
		"bad opcode":     "intrinsics:\n  - opcode: zz\n    name: x\n",
		"missing name":   "intrinsics:\n  - opcode: 0001H\n    args: 1\n",
		"negative args":  "intrinsics:\n  - opcode: 0001H\n    name: x\n    args: -1\n",
		"ui without lua": "ui:\n  - name: UI_x\n",
		"not yaml":       "intrinsics: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadOverrides(writeOverrides(t, content)); err == nil {
				t.Errorf("LoadOverrides accepted %q", content)
			}
		})
	}
	if _, err := LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("LoadOverrides of a missing file succeeded")
	}
}

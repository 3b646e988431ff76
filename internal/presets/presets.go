package presets

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coachtinho/led/internal/protocol/magichome"
)

// EffectPreset 命名的效果 + 速度组合
type EffectPreset struct {
	Effect magichome.Effect
	Speed  int
}

// Table 命名颜色与命名效果表（CLI / HTTP 层配置数据，协议层不感知）
type Table struct {
	Colors  map[string]magichome.Color
	Effects map[string]EffectPreset
}

// Defaults 返回内置预设
func Defaults() *Table {
	return &Table{
		Colors: map[string]magichome.Color{
			"red":    {R: 255, G: 0, B: 0},
			"green":  {R: 0, G: 255, B: 0},
			"blue":   {R: 0, G: 0, B: 255},
			"lime":   {R: 255, G: 255, B: 0},
			"yellow": {R: 255, G: 110, B: 0},
			"pink":   {R: 255, G: 0, B: 170},
			"cyan":   {R: 0, G: 255, B: 255},
			"purple": {R: 170, G: 0, B: 255},
			"orange": {R: 255, G: 24, B: 0},
			"white":  {R: 255, G: 255, B: 255},
		},
		Effects: map[string]EffectPreset{
			"chaos":   {Effect: magichome.EffectRedStrobe, Speed: 95},
			"rainbow": {Effect: magichome.EffectSevenColorCrossFade, Speed: 99},
			"ambient": {Effect: magichome.EffectSevenColorCrossFade, Speed: 50},
		},
	}
}

// Reserved 命令行动作名，不能用作预设名
var Reserved = []string{"status", "on", "off", "rgb", "effect", "presets", "serve"}

func reserved(name string) bool {
	for _, r := range Reserved {
		if r == name {
			return true
		}
	}
	return false
}

// file 预设文件格式
//
//	colors:
//	  warm: [255, 147, 41]
//	effects:
//	  party: {effect: seven_color_jumping, speed: 80}
type file struct {
	Colors  map[string][]int `yaml:"colors"`
	Effects map[string]struct {
		Effect string `yaml:"effect"`
		Speed  int    `yaml:"speed"`
	} `yaml:"effects"`
}

// Load 读取预设文件并覆盖到默认预设之上；path 为空时只返回默认预设
func Load(path string) (*Table, error) {
	t := Defaults()
	if path == "" {
		return t, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	if err := t.Merge(b); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	return t, nil
}

// Merge 解析 YAML 并合并，同名条目以文件为准
func (t *Table) Merge(data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	for name, rgb := range f.Colors {
		if reserved(normalize(name)) {
			return fmt.Errorf("color %q: name is reserved for a command", name)
		}
		if len(rgb) != 3 {
			return fmt.Errorf("color %q: want 3 channels, got %d", name, len(rgb))
		}
		var ch [3]uint8
		for i, v := range rgb {
			if v < 0 || v > 255 {
				return fmt.Errorf("color %q: channel %d out of range: %d", name, i, v)
			}
			ch[i] = uint8(v)
		}
		t.Colors[normalize(name)] = magichome.Color{R: ch[0], G: ch[1], B: ch[2]}
	}
	for name, e := range f.Effects {
		if reserved(normalize(name)) {
			return fmt.Errorf("effect preset %q: name is reserved for a command", name)
		}
		effect, err := magichome.ParseEffect(e.Effect)
		if err != nil {
			return fmt.Errorf("effect preset %q: %w", name, err)
		}
		if e.Speed < 0 || e.Speed > magichome.MaxSpeed {
			return fmt.Errorf("effect preset %q: speed out of range: %d", name, e.Speed)
		}
		t.Effects[normalize(name)] = EffectPreset{Effect: effect, Speed: e.Speed}
	}
	for name := range t.Colors {
		if _, dup := t.Effects[name]; dup {
			return fmt.Errorf("preset %q defined as both color and effect", name)
		}
	}
	return nil
}

// Color 按名称查找颜色
func (t *Table) Color(name string) (magichome.Color, bool) {
	c, ok := t.Colors[normalize(name)]
	return c, ok
}

// Effect 按名称查找效果
func (t *Table) Effect(name string) (EffectPreset, bool) {
	e, ok := t.Effects[normalize(name)]
	return e, ok
}

// ColorNames 排序后的颜色名
func (t *Table) ColorNames() []string {
	return sortedKeys(t.Colors)
}

// EffectNames 排序后的效果名
func (t *Table) EffectNames() []string {
	return sortedKeys(t.Effects)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// section holds options sharing a dotted prefix; the top level has name "".
type section struct {
	name string
	opts []ConfigOption
}

// groupOptions splits dotted keys into TOML tables, preserving declaration order.
func groupOptions(opts []ConfigOption) []section {
	out := []section{{name: ""}}
	idx := map[string]int{"": 0}
	for _, o := range opts {
		name, key := "", o.Key
		if before, after, ok := strings.Cut(o.Key, "."); ok {
			name, key = before, after
		}
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, section{name: name})
		}
		out[i].opts = append(out[i].opts, ConfigOption{Key: key, Default: o.Default, Comment: o.Comment})
	}
	return out
}

// RenderDefaultTOML renders a TOML config with defaults from GetConfigOptions.
func RenderDefaultTOML() string {
	lines := []string{"# medchat configuration (TOML)", ""}
	for _, s := range groupOptions(GetConfigOptions()) {
		if len(s.opts) == 0 {
			continue
		}
		if s.name != "" {
			lines = append(lines, "["+s.name+"]")
		}
		for _, o := range s.opts {
			lines = appendOption(lines, o)
		}
	}
	return strings.Join(lines, "\n")
}

// UpdateTOML merges missing defaults into an existing TOML document and
// comments out keys that are no longer part of the schema. Missing keys are
// placed inside their table when it already exists.
func UpdateTOML(existing string) (string, bool) {
	known := make(map[string]bool)
	for _, o := range GetConfigOptions() {
		known[o.Key] = true
	}

	seen := make(map[string]bool)
	// tableEnd maps a table name to the index in out just past its last line.
	tableEnd := map[string]int{}
	firstTable := -1
	table := ""
	changed := false
	out := make([]string, 0)
	for _, line := range strings.Split(existing, "\n") {
		trim := strings.TrimSpace(line)
		if strings.HasPrefix(trim, "[") && strings.HasSuffix(trim, "]") {
			table = strings.TrimSpace(trim[1 : len(trim)-1])
			if firstTable < 0 {
				firstTable = len(out)
			}
			out = append(out, line)
			tableEnd[table] = len(out)
			continue
		}
		key, ok := parseTOMLKey(line)
		switch {
		case !ok:
			out = append(out, line)
		case !known[qualify(table, key)]:
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			out = append(out, indent+"# OUTDATED: option removed from config schema", indent+"# "+strings.TrimLeft(line, " \t"))
			changed = true
		default:
			seen[qualify(table, key)] = true
			out = append(out, line)
		}
		if ok && table != "" {
			tableEnd[table] = len(out)
		}
	}

	var missing []ConfigOption
	for _, o := range GetConfigOptions() {
		if !seen[o.Key] {
			missing = append(missing, o)
		}
	}
	if len(missing) == 0 {
		return strings.Join(out, "\n"), changed
	}

	type insertion struct {
		at    int
		lines []string
	}
	var inserts []insertion
	var tail []string
	for _, s := range groupOptions(missing) {
		if len(s.opts) == 0 {
			continue
		}
		var block []string
		for _, o := range s.opts {
			block = appendOption(block, o)
		}
		switch end, ok := tableEnd[s.name]; {
		case s.name == "" && firstTable >= 0:
			inserts = append(inserts, insertion{at: firstTable, lines: block})
		case s.name == "":
			tail = append(tail, block...)
		case ok:
			inserts = append(inserts, insertion{at: end, lines: block})
		default:
			tail = append(tail, "["+s.name+"]")
			tail = append(tail, block...)
		}
	}
	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].at > inserts[j].at })
	for _, ins := range inserts {
		out = append(out[:ins.at], append(ins.lines, out[ins.at:]...)...)
	}
	if len(tail) > 0 {
		out = append(out, "", "# Added by config update")
		out = append(out, tail...)
	}
	return strings.Join(out, "\n"), true
}

func qualify(table, key string) string {
	if table == "" {
		return key
	}
	return table + "." + key
}

func parseTOMLKey(line string) (string, bool) {
	trim := strings.TrimSpace(line)
	if trim == "" || strings.HasPrefix(trim, "#") {
		return "", false
	}
	idx := strings.Index(line, "=")
	if idx == -1 {
		return "", false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" || strings.HasPrefix(key, "\"") || strings.HasPrefix(key, "'") {
		return "", false
	}
	return key, true
}

func appendOption(lines []string, o ConfigOption) []string {
	if o.Comment != "" {
		lines = append(lines, "# "+o.Comment)
	}
	return append(lines, o.Key+" = "+tomlValue(o.Default), "")
}

func tomlValue(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case []string:
		q := make([]string, len(v))
		for i, s := range v {
			q[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(q, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

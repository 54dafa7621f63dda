// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kairn-ai/kairn/internal/intelligence"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"

	outputVersion = intelligence.Version
)

var (
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	emptyStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240"))
)

// payload is a response envelope. print adds the "_v" key.
type payload map[string]any

func validFormat(f string) bool {
	switch f {
	case formatJSON, formatYAML, formatText:
		return true
	}
	return false
}

// print writes v to the command's stdout in the selected format.
func (c *cli) print(cmd *cobra.Command, v any) error {
	if p, ok := v.(payload); ok {
		p["_v"] = outputVersion
	}
	return render(cmd.OutOrStdout(), c.format, v)
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return kairnerr.Errorf(kairnerr.CodeInternalFailure, "encoding yaml: %w", err)
		}
		return enc.Close()
	case formatText:
		tree, err := toTree(v)
		if err != nil {
			return err
		}
		var b strings.Builder
		writeTree(&b, tree, 0)
		_, err = io.WriteString(w, b.String())
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return kairnerr.Errorf(kairnerr.CodeInternalFailure, "encoding json: %w", err)
		}
		return nil
	}
}

// toTree reduces v to maps, slices and scalars through its JSON form so the
// text renderer honours the same field names and omissions.
func toTree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeInternalFailure, "encoding output: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeInternalFailure, "decoding output: %w", err)
	}
	return tree, nil
}

func writeTree(b *strings.Builder, v any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			if k == "_v" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := t[k]
			if isScalar(child) {
				fmt.Fprintf(b, "%s%s %s\n", indent, keyStyle.Render(k+":"), scalar(child))
				continue
			}
			fmt.Fprintf(b, "%s%s\n", indent, keyStyle.Render(k+":"))
			writeTree(b, child, depth+1)
		}
	case []any:
		if len(t) == 0 {
			fmt.Fprintf(b, "%s%s\n", indent, emptyStyle.Render("(none)"))
			return
		}
		for i, item := range t {
			if isScalar(item) {
				fmt.Fprintf(b, "%s- %s\n", indent, scalar(item))
				continue
			}
			if i > 0 {
				fmt.Fprintf(b, "%s%s\n", indent, dimStyle.Render("---"))
			}
			writeTree(b, item, depth)
		}
	default:
		fmt.Fprintf(b, "%s%s\n", indent, scalar(t))
	}
}

func isScalar(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return false
	case []any:
		// Short lists of scalars stay on one line.
		for _, item := range t {
			if !isScalar(item) {
				return false
			}
		}
		return len(t) > 0
	}
	return true
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return emptyStyle.Render("-")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = scalar(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

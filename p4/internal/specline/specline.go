// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package specline splits the lines of Perforce spec forms (views,
// protections, triggers) into fields.
package specline

import (
	"fmt"
	"strings"
)

// Split breaks line at runs of blanks. Double quotes group blanks into
// a field and are removed; a quote may start mid-field, as in
// -"//depot/a b/...". Single quotes and backslashes are ordinary
// characters, since depot paths may contain them.
func Split(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inField, quoted := false, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inField = true
		case !quoted && (r == ' ' || r == '\t' || r == '\r' || r == '\n'):
			if inField {
				fields = append(fields, cur.String())
				cur.Reset()
				inField = false
			}
		default:
			cur.WriteRune(r)
			inField = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if inField {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

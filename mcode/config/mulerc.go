/*
 * mule - .mulerc search-path file parser
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package config reads .mulerc, an optional repo-local file listing
// default object-file search directories, one per line, with '#'
// comments: a minor enrichment of the -i/MULE_PATH search path loader
// already builds, parsed with the same line-at-a-time bufio.Reader
// discipline config/configparser uses for its own option files.
package config

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// ReadMulerc reads path line by line, returning one include directory per
// non-blank, non-comment line. A missing file is not an error: .mulerc is
// entirely optional, so callers get an empty slice rather than having to
// special-case os.IsNotExist themselves.
func ReadMulerc(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var dirs []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if entry := parseLine(line); entry != "" {
			dirs = append(dirs, entry)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}
	return dirs, nil
}

// parseLine strips a trailing '#' comment and surrounding whitespace,
// returning "" for a blank or comment-only line.
func parseLine(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

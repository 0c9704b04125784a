/*
 * mule - Object-file section dumper
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

// mcodedump prints the section structure of a Lilith object file: module
// headers, imports, procedure entry points, code block sizes, data
// initializers and fixup lists. It never executes or disassembles the
// code it reads — that is a distinct, larger concern this tool
// deliberately leaves alone.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcornwell/mule/mcode/objfile"
)

func main() {
	var raw bool

	rootCmd := &cobra.Command{
		Use:   "mcodedump <file.obj>",
		Short: "Dump the section structure of a Lilith object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dump(args[0], raw)
		},
	}
	rootCmd.Flags().BoolVar(&raw, "raw", false, "Print code/data bytes instead of just their lengths")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func dump(path string, raw bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := objfile.NewReader(f)
	moduleCount := 0
	for {
		sec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch s := sec.(type) {
		case *objfile.ModuleHeader:
			moduleCount++
			fmt.Printf("MODULE %q key=%v data=%d words code=%d words\n",
				s.Name, s.Key, s.DataSize, s.CodeSize)

		case *objfile.ImportSection:
			fmt.Printf("  IMPORTS (%d)\n", len(s.Records))
			for i, rec := range s.Records {
				fmt.Printf("    [%d] %q key=%v\n", i, rec.Name, rec.Key)
			}

		case *objfile.ProcEntries:
			if s.OldFormat {
				fmt.Printf("  PROC[%d] = 0x%04x\n", s.Pidx, s.Entry)
			} else {
				fmt.Printf("  PROC table (%d entries)\n", len(s.Entries))
				for i, e := range s.Entries {
					fmt.Printf("    [%d] = 0x%04x\n", i, e)
				}
			}

		case *objfile.CodeBlock:
			fmt.Printf("  CODE @%#04x (%d bytes)\n", s.ByteOffset, len(s.Bytes))
			if raw {
				fmt.Printf("    % x\n", s.Bytes)
			}

		case *objfile.DataInit:
			fmt.Printf("  DATA @%#04x (%d words)\n", s.WordOffset, len(s.Words))
			if raw {
				fmt.Printf("    %v\n", s.Words)
			}

		case *objfile.Fixups:
			fmt.Printf("  FIXUP (%d offsets) %v\n", len(s.Offsets), s.Offsets)
		}
	}

	if moduleCount == 0 {
		return fmt.Errorf("%s: no MODULE section found", path)
	}
	return nil
}

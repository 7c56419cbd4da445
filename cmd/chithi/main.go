/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command chithi is the umbrella CLI: it handles sync, list, run and
// version directly, and dispatches anything else to a chithi-<name>
// binary found on PATH.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/ifazk/chithi/cmd"
)

func main() {
	if len(os.Args) >= 2 {
		if _, known := cmd.KnownSubcommands()[os.Args[1]]; !known && os.Args[1][0] != '-' {
			execExternal(os.Args[1], os.Args[2:])
		}
	}

	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// execExternal replaces the current process with chithi-<name>, mirroring
// an external subcommand lookup on PATH. It only returns on failure to
// locate or exec the external binary.
func execExternal(name string, args []string) {
	program := "chithi-" + name
	path, err := exec.LookPath(program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s was not found in PATH\n", program)
		os.Exit(1)
	}

	argv := append([]string{program}, args...)
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "exec %s: %v\n", program, err)
		os.Exit(1)
	}
}

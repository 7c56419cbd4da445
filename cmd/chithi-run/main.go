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

// Command chithi-run is a standalone binary mirroring "chithi run": it
// exists so a parallel task's child jobs, and cron/systemd units, can
// invoke the runner directly without going through the umbrella
// dispatch.
package main

import (
	"os"

	"github.com/ifazk/chithi/cmd/run"
)

func main() {
	runCmd := run.NewRunCmd()
	runCmd.Use = "chithi-run [task[.job]]"
	if err := runCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

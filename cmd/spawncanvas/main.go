/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"os"

	"github.com/blazetornado2014/SpawnCanvas/internal/cli"
	"github.com/blazetornado2014/SpawnCanvas/internal/crash"
	applog "github.com/blazetornado2014/SpawnCanvas/internal/log"
	"github.com/blazetornado2014/SpawnCanvas/internal/telemetry"
)

func main() {
	applog.Init(applog.FromEnv())
	telemetry.InitDefault()

	cmd, app := cli.NewRoot()
	defer func() { crash.Recover(app.Store(), app.ResolvedDataDir()) }()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

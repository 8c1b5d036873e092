/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage defines the asynchronous key-value persistence port the
// canvas core writes through, plus the concrete backends: an in-memory map,
// a directory of atomically written files, an embedded SQLite database, and
// a Postgres table for installations that keep their data on a server.
// All values are opaque byte blobs; the core stores JSON documents keyed per
// workspace ("workspace:<id>"), per history ("history:<id>"), and a small
// set of singleton keys.
package storage

/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command autopatrol runs the factory-floor health patrol: scheduled and
// manual device patrols, the log copy job and MES result publishing.
package main

import "log"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

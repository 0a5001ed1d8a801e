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

package models

// DriverClass groups acquisition drivers by what the device reports.
type DriverClass int

const (
	DriverOther DriverClass = iota
	DriverCondition
	DriverData
)

func (c DriverClass) String() string {
	switch c {
	case DriverCondition:
		return "condition"
	case DriverData:
		return "data"
	case DriverOther:
		return "other"
	default:
		return "other"
	}
}

const panasonicPrintingDriver = "CQ.IOT.HT.PanasonicPrintingDriver.dll"

var (
	conditionDrivers = newDriverSet(
		"CQ.IOT.SiemensPLCDriver.dll",
		"CQ.IOT.LightDriver.dll",
	)

	dataDrivers = newDriverSet(
		"CQ.IOT.HT.TRIAOIDriver.dll",
		"CQ.IOT.HT.GluingBZDriver.dll",
		"CQ.IOT.HT.ReflowDriver.dll",
		"CQ.IOT.HT.GarberryGluingDriver.dll",
		"CQ.IOT.HT.LaminatorDriver.dll",
		"CQ.IOT.HT.BorudaLMJDriver.dll",
		panasonicPrintingDriver,
		"CQ.IOT.HT.SPIDriver.dll",
		"CQ.IOT.HT.TestLXDriver.dll",
		"CQ.IOT.HT.BindDriver.dll",
		"CQ.IOT.HT.TJLMJDriver.dll",
		"CQ.IOT.HT.BorudaQFBJDriver.dll",
		"CQ.IOT.HT.XZPlasmaDriver.dll",
		"CQ.IOT.HT.DispenserDriver.dll",
		"CQ.IOT.HT.BriquettingDriver.dll",
		"CQ.IOT.HT.ClgxAVI2Driver.dll",
		"CQ.IOT.HT.LXTestNewDriver.dll",
		"CQ.IOT.HT.OSLMJDriver.dll",
		"CQ.IOT.HT.LaminatingDriver.dll",
		"CQ.IOT.HT.PunchDriver.dll",
		"CQ.IOT.HT.TestMachinegDriver.dll",
		"CQ.IOT.HT.XRayDriver.dll",
		"CQ.IOT.HT.DZLaserDriver.dll",
		"CQ.IOT.HT.JLBZJDriver.dll",
		"CQ.IOT.HT.LaserDriver.dll",
		"CQ.IOT.HT.BriquettingTestDriver.dll",
		"CQ.IOT.HT.DryingOvenDriver.dll",
		"CQ.IOT.HT.LeaderPunchDriver.dll",
		"CQ.IOT.HT.PlasmaDriver.dll",
	)

	datedPathDrivers = newDriverSet(panasonicPrintingDriver)
)

type driverSet map[string]struct{}

func newDriverSet(names ...string) driverSet {
	s := make(driverSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}

	return s
}

func (s driverSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// ClassifyDriver maps a driver identifier to its class. Matching is exact;
// empty and unknown names are DriverOther.
func ClassifyDriver(name string) DriverClass {
	switch {
	case conditionDrivers.has(name):
		return DriverCondition
	case dataDrivers.has(name):
		return DriverData
	default:
		return DriverOther
	}
}

// UsesDatedPath reports whether the driver writes into per-day directories
// whose share path carries a "*" placeholder.
func UsesDatedPath(name string) bool {
	return datedPathDrivers.has(name)
}

// FixtureLink Core
// Copyright (c) 2026 The FixtureLink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of FixtureLink Core.
//
// FixtureLink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// FixtureLink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with FixtureLink Core.  If not, see <http://www.gnu.org/licenses/>.

package runlog

// ResultCode pairs a fixture result code with its name.
type ResultCode struct {
	Name string
	Code string
}

// ResultCodes lists every result a fixture can report.
var ResultCodes = []ResultCode{
	{"PASS", "000"},
	{"EMPTY_COMMAND", "001"},
	{"ACK1", "002"},
	{"ACK2", "003"},
	{"RECEIVE", "004"},
	{"UNKNOWN_MODE", "005"},
	{"OUT_OF_RANGE", "006"},
	{"ALIGNMENT", "007"},
	{"FIXTURE_ENTER_DTM", "008"},
	{"FIXTURE_ENTER_TX", "009"},
	{"FIXTURE_END_TEST", "010"},
	{"POWER_CONTACTS", "100"},
	{"ENABLE_CAMERA_2D", "210"},
	{"ENABLE_CAMERA_1D", "211"},
	{"CAMERA_2D", "220"},
	{"CAMERA_1D_RAW", "221"},
	{"LENS_HALORIFFIC", "230"},
	{"ENABLE_MOTORS", "300"},
	{"DRIVE_MOTORS", "310"},
	{"READ_ENCODERS", "320"},
	{"GEAR_GAP", "321"},
	{"ENCODERS_NON_ZERO", "330"},
	{"ENCODERS_ZERO", "331"},
	{"LEFT_MOTOR_ZERO", "332"},
	{"RIGHT_MOTOR_ZERO", "333"},
	{"LEFT_MOTOR_NON_ZERO", "334"},
	{"RIGHT_MOTOR_NON_ZERO", "335"},
	{"LEFT_WHEEL_NEGATIVE", "336"},
	{"LEFT_WHEEL_POSITIVE", "337"},
	{"RIGHT_WHEEL_NEGATIVE", "338"},
	{"RIGHT_WHEEL_POSITIVE", "339"},
	{"NOT_STATIONARY", "340"},
	{"WRITE_FACTORY_BLOCK", "400"},
	{"SERIAL_EXISTS", "401"},
	{"LOT_CODE", "402"},
	{"INVALID_MODEL", "403"},
	{"READ_FACTORY_BLOCK", "410"},
	{"ALREADY_FLASHED", "411"},
	{"GET_VERSION", "412"},
	{"ENTER_CHARGE_FLASH", "420"},
	{"FLASH_BLOCK_ACK", "421"},
	{"CANNOT_REENTER", "422"},
	{"DIFFERENT_VERSION", "423"},
	{"READ_USER_BLOCK", "430"},
	{"RADIO_RESET", "500"},
	{"RADIO_ENTER_DTM", "501"},
	{"RADIO_ENTER_RECEIVER", "502"},
	{"RADIO_END_TEST", "503"},
	{"RADIO_TEST_RESULTS", "504"},
	{"RADIO_PACKET_COUNT", "505"},
	{"PCB_BOOTLOADER", "600"},
	{"PCB_OUT_OF_SERIALS", "601"},
	{"PCB_JTAG_LOCK", "602"},
	{"PCB_ZERO_UID", "603"},
	{"PCB_FLASH_VEHICLE", "610"},
	{"PCB_ENTER_DIAG_MODE", "611"},
	{"NO_PC", "700"},
	{"PCB_ENCODERS", "800"},
	{"PCBA_UNTESTED", "900"},
	{"LENS_UNTESTED", "910"},
	{"MOTOR_UNTESTED", "920"},
	{"SELF_UNTESTED", "930"},
}

var resultNames = func() map[string]string {
	m := make(map[string]string, len(ResultCodes))
	for _, rc := range ResultCodes {
		m[rc.Code] = rc.Name
	}
	return m
}()

// ResultName returns the name for a 3 digit result code, or "" if the
// code is unknown.
func ResultName(code string) string {
	return resultNames[code]
}

// Passed reports whether code is the passing result.
func Passed(code string) bool {
	return code == "000"
}

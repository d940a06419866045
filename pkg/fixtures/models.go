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

package fixtures

import (
	"fmt"
	"strconv"
	"time"
)

// Model labels and names, indexed by model number minus one.
var (
	ModelLabels = []string{
		"E01", "E02", "F03", "F04", "X05", "I06", "G07", "Q08",
		"R09", "I10", "X11", "Q12", "R13", "V14", "T15", "T16",
	}
	ModelNames = []string{
		"Kourai Yellow", "Boson Silver", "Rho Red", "Katal Blue",
		"Corax Black/Orange", "Hadion Orange", "Spektrix Purple",
		"Groundshock Blue", "Skull Gray", "Thermo Red", "Nuke Green",
		"Guardian", "Missingno.", "Big Bang", "Truck 1", "Truck 2",
	}
	// ModelColors are the display colours for each model, as #RRGGBB.
	ModelColors = []string{
		"#FFFF00", "#C0C0C0", "#FF0000", "#4040FF", "#FF8000", "#FF8000",
		"#FF00FF", "#0080FF", "#FFFFFF", "#FF0000", "#00FF00", "#FFFFFF",
		"#FFFFFF", "#7F7F7F", "#FFFFFF", "#7F7F7F",
	}
)

func ModelCount() int {
	return len(ModelLabels)
}

// ModelLabel returns the short label (Q08) for a 1-based model number.
func ModelLabel(model int) string {
	if model < 1 || model > len(ModelLabels) {
		return ""
	}
	return ModelLabels[model-1]
}

func ModelName(model int) string {
	if model < 1 || model > len(ModelNames) {
		return ""
	}
	return ModelNames[model-1]
}

func ModelColor(model int) string {
	if model < 1 || model > len(ModelColors) {
		return ""
	}
	return ModelColors[model-1]
}

// LotCode joins the station lot, the date part and the zero-padded model.
func LotCode(lotPart1, lotPart2 string, model int) string {
	return fmt.Sprintf("%s%s%02d", lotPart1, lotPart2, model)
}

// WeekOfYear numbers weeks starting on Sunday, with week 1 being the
// week that contains January 1st.
func WeekOfYear(t time.Time) int {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	offset := int(jan1.Weekday())
	return (t.YearDay()-1+offset)/7 + 1
}

// LotDate is the last digit of the year followed by the two digit week.
func LotDate(t time.Time) string {
	year := strconv.Itoa(t.Year())
	return fmt.Sprintf("%s%02d", year[len(year)-1:], WeekOfYear(t))
}

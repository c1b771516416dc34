// Package schedule turns medicine records into clock-time reminder events
// anchored to the patient's meal times.
package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/pillbox/internal/models"
)

const (
	minutesPerDay = 24 * 60
	bedtimeClock  = Clock(22 * 60)
	maxDailySlots = 3
)

// Clock is minutes after midnight.
type Clock int

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock(hh*60 + mm), nil
}

// Add returns c shifted by minutes, wrapping around midnight.
func (c Clock) Add(minutes int) Clock {
	v := (int(c) + minutes) % minutesPerDay
	if v < 0 {
		v += minutesPerDay
	}
	return Clock(v)
}

// String formats c as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MealTimes anchors the three daily slots.
type MealTimes struct {
	Breakfast Clock
	Lunch     Clock
	Dinner    Clock
}

// DefaultMealTimes is 08:00, 12:00 and 19:00.
func DefaultMealTimes() MealTimes {
	return MealTimes{Breakfast: 8 * 60, Lunch: 12 * 60, Dinner: 19 * 60}
}

// ParseMealTimes parses "HH:MM" strings; empty values keep the default for that slot.
func ParseMealTimes(breakfast, lunch, dinner string) (MealTimes, error) {
	mt := DefaultMealTimes()
	for _, f := range []struct {
		raw string
		dst *Clock
	}{{breakfast, &mt.Breakfast}, {lunch, &mt.Lunch}, {dinner, &mt.Dinner}} {
		if f.raw == "" {
			continue
		}
		c, err := ParseClock(f.raw)
		if err != nil {
			return MealTimes{}, err
		}
		*f.dst = c
	}
	return mt, nil
}

func (mt MealTimes) slots() []struct {
	meal models.Meal
	at   Clock
} {
	return []struct {
		meal models.Meal
		at   Clock
	}{
		{models.MealBreakfast, mt.Breakfast},
		{models.MealLunch, mt.Lunch},
		{models.MealDinner, mt.Dinner},
	}
}

// Offset is the alarm offset from the meal in minutes for a timing code.
// Between meals is read as two hours after the meal.
func Offset(t models.Timing) int {
	switch t {
	case models.TimingAfterMeal:
		return 30
	case models.TimingBeforeMeal:
		return -30
	case models.TimingBetweenMeals:
		return 120
	}
	return 0
}

// Generate emits alarms for every record with a non-zero frequency. Bedtime
// records get one 22:00 event; others get one event per meal slot, capped at
// three a day.
func Generate(records []models.MedicineRecord, meals MealTimes) []models.AlarmEvent {
	out := []models.AlarmEvent{}
	for _, rec := range records {
		if rec.Frequency <= 0 {
			continue
		}
		if rec.Timing == models.TimingBedtime {
			out = append(out, models.AlarmEvent{
				Time:      bedtimeClock.String(),
				Condition: models.TimingBedtime.Label(),
				Medicine:  rec.Name,
				PerDose:   rec.PerDose,
				Meal:      models.MealBedtime,
			})
			continue
		}
		n := rec.Frequency
		if n > maxDailySlots {
			n = maxDailySlots
		}
		offset := Offset(rec.Timing)
		for _, slot := range meals.slots()[:n] {
			out = append(out, models.AlarmEvent{
				Time:      slot.at.Add(offset).String(),
				Condition: condition(slot.meal, rec.Timing),
				Medicine:  rec.Name,
				PerDose:   rec.PerDose,
				Meal:      slot.meal,
			})
		}
	}
	return out
}

func condition(meal models.Meal, t models.Timing) string {
	label := t.Label()
	if label == "" {
		return meal.Label()
	}
	return meal.Label() + " " + label
}

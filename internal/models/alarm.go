package models

// Meal is the anchor slot of an alarm event.
type Meal string

const (
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
	MealBedtime   Meal = "bedtime"
)

var mealLabels = map[Meal]string{
	MealBreakfast: "아침",
	MealLunch:     "점심",
	MealDinner:    "저녁",
	MealBedtime:   "취침 전",
}

// Label returns the Korean name of the meal slot.
func (m Meal) Label() string {
	return mealLabels[m]
}

// AlarmEvent is a single clock-time reminder. Time is "HH:MM" in 24-hour form.
type AlarmEvent struct {
	Time      string `json:"time"`
	Condition string `json:"condition"`
	Medicine  string `json:"medicine"`
	PerDose   int    `json:"per_dose"`
	Meal      Meal   `json:"meal"`
}

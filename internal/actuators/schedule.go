package actuators

import (
	"fmt"
	"strconv"
	"strings"

	"silo-backend/internal/models"
)

// ValidateSchedule checks days and HH:MM times. Execution of stored
// schedules belongs to an external scheduler.
func ValidateSchedule(schedule models.Schedule) error {
	if len(schedule.Days) == 0 {
		return fmt.Errorf("schedule has no days")
	}
	seen := make(map[int]bool, len(schedule.Days))
	for _, day := range schedule.Days {
		if day < 0 || day > 6 {
			return fmt.Errorf("invalid schedule day %d", day)
		}
		if seen[day] {
			return fmt.Errorf("duplicate schedule day %d", day)
		}
		seen[day] = true
	}

	if err := validateClock(schedule.OnTime); err != nil {
		return fmt.Errorf("invalid on_time: %w", err)
	}
	if err := validateClock(schedule.OffTime); err != nil {
		return fmt.Errorf("invalid off_time: %w", err)
	}
	if schedule.OnTime == schedule.OffTime {
		return fmt.Errorf("on_time and off_time are equal")
	}
	return nil
}

func validateClock(value string) error {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return fmt.Errorf("%q is not HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("bad hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("bad minute in %q", value)
	}
	return nil
}

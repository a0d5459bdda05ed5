package clinic

import "sort"

// AppointmentType describes one bookable visit type.
type AppointmentType struct {
	Name            string
	DurationMinutes int
	Description     string
}

var appointmentTypes = map[string]AppointmentType{
	"general_consultation": {
		Name:            "general_consultation",
		DurationMinutes: 30,
		Description:     "Standard consultation for new health concerns, chronic condition management, or general check-ups",
	},
	"follow_up": {
		Name:            "follow_up",
		DurationMinutes: 15,
		Description:     "Brief follow-up for ongoing treatment, test result review, or medication adjustment",
	},
	"physical_exam": {
		Name:            "physical_exam",
		DurationMinutes: 45,
		Description:     "Comprehensive annual physical examination including health screening and preventive care",
	},
	"specialist_consultation": {
		Name:            "specialist_consultation",
		DurationMinutes: 60,
		Description:     "Extended consultation for complex conditions requiring specialist expertise",
	},
}

// LookupType returns the catalog entry for the given appointment type name.
func LookupType(name string) (AppointmentType, bool) {
	t, ok := appointmentTypes[name]
	return t, ok
}

// TypeNames returns the valid appointment type names in stable order.
func TypeNames() []string {
	names := make([]string, 0, len(appointmentTypes))
	for name := range appointmentTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

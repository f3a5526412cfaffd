package skim

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg   int // Submitted URLs
	Assistant int // Summary text
	Error     int // Error messages
	Success   int // Success notices
	Muted     int // Status bar, placeholders, dates
	Accent    int // Headings, links
	Selected  int // Highlighted sidebar entry
	Pending   int // Sessions with a mutation in flight
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:   4,
		Assistant: 7,
		Error:     1,
		Success:   2,
		Muted:     8,
		Accent:    5,
		Selected:  6,
		Pending:   3,
	}
}

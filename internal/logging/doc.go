// Package logging constructs the application slog logger (console or JSON)
// and provides the attribute helpers and field names shared by all
// components.
package logging

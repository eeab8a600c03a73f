// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the domain stays free of ORM
// tags; each model converts with ToDomain and a FromDomain constructor.
//
// Column types avoid PostgreSQL-only types so the same models run on the
// in-memory SQLite databases used by repository tests.
package models

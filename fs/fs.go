// Package appfs holds the files shipped inside the binaries: SQL migrations and email templates.
package appfs

import "embed"

//go:embed migrations/*.sql all:templates
var FS embed.FS

// MigrationsDir is the goose migrations directory within FS.
const MigrationsDir = "migrations"

// EmailTemplatesDir is the email templates directory within FS.
const EmailTemplatesDir = "templates/email"

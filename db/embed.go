// Package db embeds the storefront's Postgres schema.
package db

import _ "embed"

// Schema holds the DDL for the kv store and products catalog tables.
//
//go:embed migrations/001_schema.sql
var Schema string

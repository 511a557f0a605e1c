package repository

import _ "embed"

// Schema 建表语句（cmd/apply-migration 使用）
//
//go:embed schema.sql
var Schema string

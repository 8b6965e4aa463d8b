package web

import "embed"

// FS holds the static assets served under /static, such as the gift image
// placeholders.
//
//go:embed static/*
var FS embed.FS

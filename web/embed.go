// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package web holds static assets embedded into the binary.
package web

import _ "embed"

// WidgetJS is the embeddable testimonial widget script served at
// /widget.js.
//
//go:embed static/widget.js
var WidgetJS []byte

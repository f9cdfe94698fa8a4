// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

// Custom binding validations so malformed enum values are rejected at
// bind time with a 400 instead of reaching the engine.
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("batchtype", func(fl validator.FieldLevel) bool {
		_, err := engine.ParseBatchType(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("verdict", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "ACCEPTED" || s == "DENIED"
	})
}

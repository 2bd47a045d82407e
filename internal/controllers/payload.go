package controllers

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"route_mapper/internal/apperr"
	"route_mapper/internal/reconcile"
	"route_mapper/internal/repository"
)

// Server-managed fields a client may never set on an update. Nested point
// entries may carry an id (it marks an in-place update during
// reconciliation); a direct point update may not.
var (
	protectedRouteFields       = []string{"id", "created_at", "updated_at"}
	protectedNestedPointFields = []string{"order", "created_at", "updated_at", "images"}
	protectedPointFields       = []string{"id", "order", "created_at", "updated_at", "images"}
)

// parseRoutePayload decodes a route create/update body. hasPoints reports
// whether the payload carried a points list at all, distinguishing "replace
// points with this list" (possibly empty) from "leave points untouched".
// All field violations are collected; a protected field aborts immediately.
func parseRoutePayload(data []byte, isUpdate bool) (repository.RouteFields, []reconcile.DesiredPoint, bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return repository.RouteFields{}, nil, false, apperr.NewValidation("invalid JSON payload")
	}

	if isUpdate {
		for _, f := range protectedRouteFields {
			if _, ok := raw[f]; ok {
				return repository.RouteFields{}, nil, false, apperr.NewProtectedField(f)
			}
		}
	}

	var violations []string
	fields := repository.RouteFields{
		Name:        parseOptionalString(raw, "name", "route name", 200, &violations),
		Description: parseOptionalString(raw, "description", "route description", 1000, &violations),
	}

	pointsRaw, hasPoints := raw["points"]
	if hasPoints && strings.TrimSpace(string(pointsRaw)) == "null" {
		// explicit null means the same as an omitted key
		hasPoints = false
	}

	var desired []reconcile.DesiredPoint
	if hasPoints {
		var entries []json.RawMessage
		if err := json.Unmarshal(pointsRaw, &entries); err != nil {
			violations = append(violations, "points must be a list")
		} else {
			desired = make([]reconcile.DesiredPoint, 0, len(entries))
			for idx, entry := range entries {
				d, err := parseDesiredPoint(entry, idx, &violations)
				if err != nil {
					return repository.RouteFields{}, nil, false, err
				}
				desired = append(desired, d)
			}
		}
	}

	if len(violations) > 0 {
		return repository.RouteFields{}, nil, false, apperr.NewValidation(violations...)
	}
	return fields, desired, hasPoints, nil
}

// parseDesiredPoint decodes one entry of a desired points list. An id that is
// not a positive integer is ignored, making the entry a create.
func parseDesiredPoint(data json.RawMessage, idx int, violations *[]string) (reconcile.DesiredPoint, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		*violations = append(*violations, fmt.Sprintf("point %d must be an object", idx))
		return reconcile.DesiredPoint{}, nil
	}

	for _, f := range protectedNestedPointFields {
		if _, ok := obj[f]; ok {
			return reconcile.DesiredPoint{}, apperr.NewProtectedField(f)
		}
	}

	var d reconcile.DesiredPoint
	if v, ok := obj["id"]; ok {
		var id int64
		if err := json.Unmarshal(v, &id); err == nil && id > 0 {
			d.ID = uint(id)
		}
	}
	d.Fields = parsePointFields(obj, fmt.Sprintf("point %d", idx), violations)
	return d, nil
}

// parseSinglePointPayload decodes a direct point create/update body,
// returning the owning route id (create only).
func parseSinglePointPayload(data []byte, isUpdate bool) (routeID uint, fields reconcile.PointFields, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, reconcile.PointFields{}, apperr.NewValidation("invalid JSON payload")
	}

	if isUpdate {
		for _, f := range protectedPointFields {
			if _, ok := raw[f]; ok {
				return 0, reconcile.PointFields{}, apperr.NewProtectedField(f)
			}
		}
	}

	var violations []string
	if !isUpdate {
		v, ok := raw["route_id"]
		if !ok {
			violations = append(violations, "route_id is required")
		} else {
			var id int64
			if err := json.Unmarshal(v, &id); err != nil || id <= 0 {
				violations = append(violations, "route_id must be a positive integer")
			} else {
				routeID = uint(id)
			}
		}
	}

	fields = parsePointFields(raw, "point", &violations)
	if len(violations) > 0 {
		return 0, reconcile.PointFields{}, apperr.NewValidation(violations...)
	}
	return routeID, fields, nil
}

func parsePointFields(obj map[string]json.RawMessage, label string, violations *[]string) reconcile.PointFields {
	f := reconcile.PointFields{
		Name:        parseOptionalString(obj, "name", label+" name", 200, violations),
		Description: parseOptionalString(obj, "description", label+" description", 1000, violations),
	}
	f.Lat = parseCoordinate(obj, "lat", label, -90, 90, violations)
	f.Lon = parseCoordinate(obj, "lon", label, -180, 180, violations)
	return f
}

// parseOptionalString trims the value and enforces the length cap. A missing
// key yields nil; an explicit null counts as empty.
func parseOptionalString(raw map[string]json.RawMessage, key, label string, maxLen int, violations *[]string) *string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	if strings.TrimSpace(string(v)) == "null" {
		empty := ""
		return &empty
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		*violations = append(*violations, label+" must be a string")
		return nil
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxLen {
		*violations = append(*violations, fmt.Sprintf("%s must be at most %d characters", label, maxLen))
	}
	return &s
}

// parseCoordinate reads a required exact-decimal coordinate and checks its
// range.
func parseCoordinate(obj map[string]json.RawMessage, key, label string, min, max int64, violations *[]string) decimal.Decimal {
	v, ok := obj[key]
	if !ok || strings.TrimSpace(string(v)) == "null" {
		*violations = append(*violations, fmt.Sprintf("%s: %s is required", label, key))
		return decimal.Decimal{}
	}
	var d decimal.Decimal
	if err := json.Unmarshal(v, &d); err != nil {
		*violations = append(*violations, fmt.Sprintf("%s: %s must be a decimal number", label, key))
		return decimal.Decimal{}
	}
	if d.Cmp(decimal.NewFromInt(min)) < 0 || d.Cmp(decimal.NewFromInt(max)) > 0 {
		*violations = append(*violations, fmt.Sprintf("%s: %s must be between %d and %d", label, key, min, max))
	}
	return d
}

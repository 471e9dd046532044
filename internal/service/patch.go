package service

import (
	"strings"

	"cmsbackend/internal/apperr"
	"cmsbackend/internal/model"

	"github.com/google/uuid"
)

// patchString reads a string valued patch field. Patches are keyed by json
// field name once the store has sanitized them.
func patchString(patch map[string]interface{}, key string) (string, bool, error) {
	v, ok := patch[key]
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, apperr.Validation("Invalid values in parameters, %s must be a string", key)
	}
	return s, true, nil
}

// rejectFields fails when the patch touches any of the given fields
func rejectFields(reason string, fields ...string) func(map[string]interface{}) error {
	return func(patch map[string]interface{}) error {
		for _, f := range fields {
			if _, ok := patch[f]; ok {
				return apperr.Validation("%s %s", f, reason)
			}
		}
		return nil
	}
}

// normalizeRoutePatch applies ProjectRoute.Normalize to a bulk update
func normalizeRoutePatch(patch map[string]interface{}) error {
	uri, ok, err := patchString(patch, "uri")
	if err != nil {
		return err
	}
	if ok {
		uri = model.NormalizeURI(uri)
		if uri == "" {
			return apperr.Validation("Invalid values in parameters, uri failed on required")
		}
		patch["uri"] = uri
		if _, named := patch["route_name"]; !named {
			patch["route_name"] = model.RouteName(uri)
		}
	}

	method, ok, err := patchString(patch, "method")
	if err != nil {
		return err
	}
	if ok {
		method = model.NormalizeMethod(method)
		if !model.IsRouteMethod(method) {
			return apperr.Validation("Invalid values in parameters, method failed on oneof %s", strings.Join(model.RouteMethods, " "))
		}
		patch["method"] = method
	}

	name, ok, err := patchString(patch, "route_name")
	if err != nil {
		return err
	}
	if ok && strings.TrimSpace(name) == "" {
		return apperr.Validation("Invalid values in parameters, route_name failed on required")
	}
	return nil
}

// normalizeIDPatch parses the given uuid reference fields of a bulk update
func normalizeIDPatch(fields ...string) func(map[string]interface{}) error {
	return func(patch map[string]interface{}) error {
		for _, f := range fields {
			raw, ok, err := patchString(patch, f)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				return apperr.Validation("Invalid values in parameters, %s must be a uuid", f)
			}
			patch[f] = id
		}
		return nil
	}
}

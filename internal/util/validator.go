// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"reflect"
	"strings"

	multierr "github.com/hashicorp/go-multierror"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// Validator collects validation failures into a single multierror.
type Validator struct {
	Error error
}

// MustNotBeEmpty checks that value is neither nil nor an empty string, slice or map.
func (v *Validator) MustNotBeEmpty(key string, value any) bool {
	if value == nil {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be nil or empty", key))
		return false
	}
	cv := reflect.ValueOf(value)
	switch cv.Kind() {
	case reflect.String:
		if strings.TrimSpace(cv.String()) == "" {
			v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be empty", key))
			return false
		}
	case reflect.Slice, reflect.Map:
		if cv.Len() == 0 {
			v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be empty", key))
			return false
		}
	default:
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s has unsupported kind %s", key, cv.Kind()))
		return false
	}
	return true
}

// MustNotBeNil checks that value is not a nil pointer, map, slice or interface.
func (v *Validator) MustNotBeNil(key string, value any) bool {
	if value == nil {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be nil", key))
		return false
	}
	cv := reflect.ValueOf(value)
	switch cv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		if cv.IsNil() {
			v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be nil", key))
			return false
		}
	}
	return true
}

// MustHaveLength checks that value is a slice or map with exactly n entries.
func (v *Validator) MustHaveLength(key string, value any, n int) bool {
	cv := reflect.ValueOf(value)
	if (cv.Kind() != reflect.Slice && cv.Kind() != reflect.Map) || cv.Len() != n {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must have exactly %d entries", key, n))
		return false
	}
	return true
}

// MustBePositive checks that value is greater than zero.
func (v *Validator) MustBePositive(key string, value int) bool {
	if value <= 0 {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must be greater than 0, got %d", key, value))
		return false
	}
	return true
}

// MustNotBeNegativeDuration checks that value is zero or positive.
func (v *Validator) MustNotBeNegativeDuration(key string, value metav1.Duration) bool {
	if value.Duration < 0 {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be negative, got %s", key, value.Duration))
		return false
	}
	return true
}

// LabelSelectorMustBeValid checks that value parses as a label selector.
func (v *Validator) LabelSelectorMustBeValid(key string, value string) bool {
	if _, err := labels.Parse(value); err != nil {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s is not a valid label selector: %w", key, err))
		return false
	}
	return true
}

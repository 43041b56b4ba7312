// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/yaml"
)

const manifestBufferSize = 4096

// DecodeManifests decodes a stream of YAML documents or JSON objects into unstructured objects.
// Lists are flattened into their items and empty documents are skipped.
func DecodeManifests(data []byte) ([]*unstructured.Unstructured, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), manifestBufferSize)
	var objs []*unstructured.Unstructured
	for i := 0; ; i++ {
		raw := map[string]any{}
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return objs, nil
			}
			return nil, fmt.Errorf("failed to decode manifest document %d: %w", i, err)
		}
		if len(raw) == 0 {
			continue
		}
		obj := &unstructured.Unstructured{Object: raw}
		if obj.GetKind() == "" {
			return nil, fmt.Errorf("manifest document %d has no kind", i)
		}
		if !obj.IsList() {
			objs = append(objs, obj)
			continue
		}
		err := obj.EachListItem(func(item runtime.Object) error {
			u, ok := item.(*unstructured.Unstructured)
			if !ok {
				return fmt.Errorf("unexpected list item type %T", item)
			}
			objs = append(objs, u)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to flatten manifest list %d: %w", i, err)
		}
	}
}

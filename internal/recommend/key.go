// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package recommend

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
)

// CacheKey derives a deterministic cache key from the effective request
// parameters and the model version. Embedding the model version means a new
// model implicitly invalidates all old entries without an explicit flush.
//
// Filters are serialized with sorted keys so semantically identical filter
// maps always hash to the same key regardless of insertion order.
func CacheKey(userID, referenceItemID string, count int, weight float64, filters map[string]string, modelVersion string) string {
	h := fnv.New64a()

	writeField := func(s string) {
		// Length-prefixing keeps field boundaries unambiguous.
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte(":"))
		h.Write([]byte(s))
	}

	writeField(userID)
	writeField(referenceItemID)
	writeField(strconv.Itoa(count))
	writeField(strconv.FormatFloat(weight, 'g', -1, 64))
	writeField(modelVersion)

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeField(k)
		writeField(filters[k])
	}

	return fmt.Sprintf("rec:%016x", h.Sum64())
}

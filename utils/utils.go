package utils

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"
)

// CalculateDifference Get percentage difference between 2 numbers, 0 when the base is 0
func CalculateDifference(x float64, y float64) float64 {
	if y == 0 {
		return 0
	}
	return (x - y) / y
}

// SumArr Get the sum of all elements in a slice
func SumArr(arr []float64) float64 {
	sum := 0.0
	for i := range arr {
		sum = sum + arr[i]
	}
	return sum
}

// MeanArr Get the mean of a slice, 0 for an empty one
func MeanArr(arr []float64) float64 {
	if len(arr) == 0 {
		return 0
	}
	return SumArr(arr) / float64(len(arr))
}

// MinArr Get the smallest element of a slice, 0 for an empty one
func MinArr(arr []float64) float64 {
	if len(arr) == 0 {
		return 0
	}
	m := arr[0]
	for _, v := range arr[1:] {
		m = math.Min(m, v)
	}
	return m
}

// CreateKeyValuePairs make a string interface human readable
func CreateKeyValuePairs(m map[string]interface{}, ignoreLowerCase bool, oldBytes ...*bytes.Buffer) string {
	var b *bytes.Buffer
	if len(oldBytes) > 0 {
		b = oldBytes[0]
	} else {
		b = new(bytes.Buffer)
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fmt.Fprint(b, "{")
	for _, key := range keys {
		value := m[key]
		firstLetter := string(key[0])
		upperCaseFirstLetter := strings.ToUpper(firstLetter)
		if !ignoreLowerCase || upperCaseFirstLetter == firstLetter {
			rv := reflect.ValueOf(value)
			if rv.Kind() == reflect.Struct {
				fmt.Fprint(b, " ", key, ": ")
				CreateKeyValuePairs(structs.Map(value), ignoreLowerCase, b)
			} else {
				fmt.Fprint(b, " ", key, ": ", value, ",")
			}
		}
	}
	fmt.Fprint(b, " }")
	return b.String()
}

func StringInSlice(a string, list []string) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

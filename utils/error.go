package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorInsufficientStock is returned when a guarded catalog debit would push a
// stock field below zero.
var ErrorInsufficientStock = errors.New("insufficient stock")

// ErrorConcurrentUpdate is returned when an optimistic version check fails on
// a cycle's genetics array.
var ErrorConcurrentUpdate = errors.New("record was modified concurrently, retry")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

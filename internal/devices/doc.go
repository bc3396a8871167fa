// Package devices turns a device request into a concrete device plan.
package devices

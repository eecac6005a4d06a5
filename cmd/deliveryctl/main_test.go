package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteCommand(t *testing.T) {
	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	a.ErrWriter = &bytes.Buffer{}

	err := a.RunContext(context.Background(), []string{"deliveryctl", "quote", "--value", "40", "--date", "2024-03-02", "--to", "Good Tern"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Rate:        15%")
	assert.Contains(t, out.String(), "Commission:  $6.00")
}

func TestQuoteCommandRequiresFlags(t *testing.T) {
	a := newApp()
	a.Writer = &bytes.Buffer{}
	a.ErrWriter = &bytes.Buffer{}

	err := a.RunContext(context.Background(), []string{"deliveryctl", "quote", "--value", "40"})
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	a := newApp()
	var names []string
	for _, c := range a.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"report", "route", "quote", "geocode", "jobs"}, names)
}

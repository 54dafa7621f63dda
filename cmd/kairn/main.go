// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"fmt"
	"os"

	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(kairnerr.ExitCode(err))
	}
}

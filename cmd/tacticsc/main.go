// Copyright (C) 2023 The Tactics Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Tacticsc is the offline kernel compiler: it reads a module description
// and compiles it to kernel artifacts for one or more GPU targets.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quint-lang/tactics/core/log"
)

func main() {
	verbose := false

	root := &cobra.Command{
		Use:           "tacticsc",
		Short:         "tacticsc compiles tensor modules to GPU kernels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		ctx := log.PutHandler(context.Background(), log.Std(log.Normal))
		if !verbose {
			ctx = log.PutFilter(ctx, log.Info)
		}
		cmd.SetContext(ctx)
	}
	root.AddCommand(compileCmd(), targetsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tacticsc:", err)
		os.Exit(1)
	}
}

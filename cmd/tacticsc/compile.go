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

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quint-lang/tactics/compiler"
	"github.com/quint-lang/tactics/compiler/kernel"
	"github.com/quint-lang/tactics/compiler/target"
	"github.com/quint-lang/tactics/core/log"
)

// artifactMeta is the sidecar metadata written next to each kernel.
type artifactMeta struct {
	Entry     string              `json:"entry"`
	Target    string              `json:"target"`
	CodeBytes int                 `json:"codeBytes"`
	Resources kernel.ResourceInfo `json:"resources"`
}

func compileCmd() *cobra.Command {
	var (
		targets []string
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "compile <module.json>",
		Short: "Compile a module description for one or more targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := loadModule(args[0])
			if err != nil {
				return err
			}

			descriptors := make([]target.Descriptor, len(targets))
			for i, spec := range targets {
				if descriptors[i], err = parseTarget(spec); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return errors.Wrap(err, "creating output directory")
			}

			c := compiler.New(ctx)
			grp := errgroup.Group{}
			for _, d := range descriptors {
				d := d
				grp.Go(func() error {
					a, err := c.Compile(ctx, m, d)
					if err != nil {
						return errors.Wrapf(err, "compiling for %v", d)
					}
					defer a.Release()
					return writeArtifact(outDir, d, a)
				})
			}
			if err := grp.Wait(); err != nil {
				return err
			}
			log.I(ctx, "compiled %v for %d target(s)", m.Name(), len(descriptors))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&targets, "target", "t",
		[]string{"nvptx/sm_70"}, "target as arch/chip[+feature...], repeatable")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

// parseTarget parses "arch/chip+feature+feature" into a descriptor.
func parseTarget(spec string) (target.Descriptor, error) {
	archName, rest, ok := strings.Cut(spec, "/")
	if !ok || rest == "" {
		return target.Descriptor{}, errors.Errorf("malformed target %q, want arch/chip[+feature...]", spec)
	}
	arch, err := target.ParseArchitecture(archName)
	if err != nil {
		return target.Descriptor{}, err
	}
	parts := strings.Split(rest, "+")
	return target.New(arch, parts[0], parts[1:]...), nil
}

// writeArtifact writes the kernel code and its metadata sidecar.
func writeArtifact(dir string, d target.Descriptor, a *kernel.Artifact) error {
	base := fmt.Sprintf("%s.%v", a.Entry(), d.Architecture())
	if err := os.WriteFile(filepath.Join(dir, base+".bin"), a.Code(), 0644); err != nil {
		return errors.Wrap(err, "writing kernel code")
	}
	meta, err := json.MarshalIndent(artifactMeta{
		Entry:     a.Entry(),
		Target:    d.CanonicalKey(),
		CodeBytes: len(a.Code()),
		Resources: a.Resources(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, base+".json"), append(meta, '\n'), 0644), "writing metadata")
}

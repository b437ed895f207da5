// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/globi-tools/tdk/enrich"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// EnrichMain is the Main of the last enrich command created.
var EnrichMain *enrich.Main

// NewEnrichCommand returns the enrich subcommand.
func NewEnrichCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	EnrichMain = enrich.NewMain()
	enrichCommand := &cobra.Command{
		Use:   "enrich",
		Short: "add literature attention and first description year to each taxon",
		Long: `Looks up every taxon of the input table in Semantic Scholar, PubMed
and Wikidata, one row at a time, saving a checkpoint every batch-size rows.
When checkpoints exist the newest valid one is resumed, and only fields
which are still empty are looked up. Remove the checkpoint directory to
start over.

Failed attention lookups are written as NA. A year which Wikidata does not
have is written as NA, while a failed year lookup stays empty and is retried
on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)
			go func() {
				select {
				case <-sigs:
					cancel()
				case <-ctx.Done():
				}
			}()
			err = EnrichMain.RunContext(ctx)
			if err != nil {
				return err
			}
			res := EnrichMain.Result
			cmd.Printf("Done: %d rows looked up, %d skipped, %d checkpoints in %s\n",
				res.Processed, res.Skipped, res.Checkpoints, time.Since(start))
			return nil
		},
	}
	flags := enrichCommand.Flags()
	err = commandeer.Flags(flags, EnrichMain)
	if err != nil {
		panic(err)
	}
	return enrichCommand
}

func init() {
	subcommandFns["enrich"] = NewEnrichCommand
}

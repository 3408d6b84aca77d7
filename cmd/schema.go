package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/inline"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// eventPayloads holds one value of every event variant.
var eventPayloads = []event.Event{
	event.DownloadProgress{},
	event.DownloadResult{},
	event.MergeStarted{},
	event.MergeProgress{},
	event.MergeComplete{},
	event.MergeError{},
	event.Log{},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolP("output", "o", false, "Print the schema of the final JSON document instead of the events")
	schemaCmd.Flags().StringP("event", "e", "", "Print the payload schema of a single event")
	schemaCmd.MarkFlagsMutuallyExclusive("output", "event")
	lo.Must0(schemaCmd.RegisterFlagCompletionFunc("event", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return lo.Map(eventPayloads, func(e event.Event, _ int) string {
			return e.Kind().String()
		}), cobra.ShellCompDirectiveNoFileComp
	}))

	schemaCmd.SetOut(os.Stdout)
}

// eventSchema documents the JSON lines written by download --json.
type eventSchema struct {
	Envelope *jsonschema.Schema            `json:"envelope"`
	Payloads map[string]*jsonschema.Schema `json:"payloads"`
}

// schemaCmd prints JSON schemas of the machine readable output.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the machine readable output",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := newReflector()
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")

		if lo.Must(cmd.Flags().GetBool("output")) {
			handleErr(encoder.Encode(reflector.Reflect(&inline.Output{})))
			return
		}

		if name := lo.Must(cmd.Flags().GetString("event")); name != "" {
			e, ok := lo.Find(eventPayloads, func(e event.Event) bool {
				return e.Kind().String() == name
			})
			if !ok {
				handleErr(errUnknownEvent(name))
			}
			handleErr(encoder.Encode(reflector.Reflect(e)))
			return
		}

		handleErr(encoder.Encode(eventSchema{
			Envelope: reflector.Reflect(&event.Envelope{}),
			Payloads: lo.SliceToMap(eventPayloads, func(e event.Event) (string, *jsonschema.Schema) {
				return e.Kind().String(), reflector.Reflect(e)
			}),
		}))
	},
}

func errUnknownEvent(name string) error {
	names := lo.Map(eventPayloads, func(e event.Event, _ int) string { return e.Kind().String() })
	return fmt.Errorf(
		"unknown event %s, did you mean %s?",
		style.Fg(color.Red)(name),
		style.Fg(color.Yellow)(closest(name, names)),
	)
}

func newReflector() *jsonschema.Reflector {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.Namer = func(t reflect.Type) string {
		name := t.Name()
		switch strings.ToLower(name) {
		case "series", "result", "output", "status":
			return filepath.Base(t.PkgPath()) + "." + name
		}

		return name
	}
	return reflector
}

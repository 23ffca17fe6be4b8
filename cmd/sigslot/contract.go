package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/sigslot/internal/model"
	"github.com/dshills/sigslot/internal/signal"
)

func contractCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Print the signals, sockets and commands available to scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text":
				return writeContractText(cmd.OutOrStdout(), model.BufferClass)
			case "json":
				return writeContractJSON(cmd.OutOrStdout(), model.BufferClass)
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

// attributeKind names the kind of a Buffer attribute.
func attributeKind(a signal.Attribute) string {
	switch a.(type) {
	case *signal.SignalDescriptor[model.Buffer]:
		return "signal"
	case *signal.SocketDescriptor[model.Buffer]:
		return "socket"
	default:
		return "attribute"
	}
}

func attributeContract(a signal.Attribute) signal.Signature {
	if c, ok := a.(interface{ Contract() signal.Signature }); ok {
		return c.Contract()
	}
	return signal.Signature{}
}

func writeContractText(w io.Writer, cls *signal.Class) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (global \"buffer\")\n", cls.Name())
	for _, a := range cls.Attributes() {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", attributeKind(a), a.Name(), attributeContract(a), a.Doc())
	}
	fmt.Fprintln(tw, "commands")
	for _, c := range commands {
		fmt.Fprintf(tw, "  function\t%s\t%s\t%s\n", c.name, c.contract, c.doc)
	}
	return tw.Flush()
}

func writeContractJSON(w io.Writer, cls *signal.Class) error {
	doc, err := sjson.Set(`{}`, "class", cls.Name())
	if err != nil {
		return err
	}
	for _, key := range []string{"attributes", "commands"} {
		if doc, err = sjson.SetRaw(doc, key, `[]`); err != nil {
			return err
		}
	}

	for _, a := range cls.Attributes() {
		entry := describe(a.Name(), a.Doc(), attributeContract(a))
		entry["kind"] = attributeKind(a)
		if doc, err = sjson.Set(doc, "attributes.-1", entry); err != nil {
			return err
		}
	}
	for _, c := range commands {
		entry := describe(c.name, c.doc, c.contract)
		entry["kind"] = "function"
		if doc, err = sjson.Set(doc, "commands.-1", entry); err != nil {
			return err
		}
	}

	_, err = w.Write(pretty.Pretty([]byte(doc)))
	return err
}

// describe returns the JSON form of a named contract.
func describe(name, doc string, sig signal.Signature) map[string]any {
	params := make([]map[string]any, len(sig.Params))
	for i, p := range sig.Params {
		typ := "any"
		if p.Type != nil {
			typ = p.Type.String()
		}
		params[i] = map[string]any{
			"name": p.Name,
			"kind": p.Kind.String(),
			"type": typ,
		}
	}
	results := make([]string, len(sig.Results))
	for i, t := range sig.Results {
		results[i] = t.String()
	}
	return map[string]any{
		"name":     name,
		"doc":      doc,
		"contract": sig.String(),
		"params":   params,
		"results":  results,
	}
}

// ABOUTME: CS owner CLI command
// ABOUTME: Runs the owner heuristic offline against the roster for a list of SKUs
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/harperreed/dealbridge/models"
	"github.com/harperreed/dealbridge/sync"
)

// skuList collects repeated --sku flags.
type skuList []string

func (s *skuList) String() string {
	return strings.Join(*s, ",")
}

func (s *skuList) Set(value string) error {
	for _, sku := range strings.Split(value, ",") {
		if sku = strings.TrimSpace(sku); sku != "" {
			*s = append(*s, sku)
		}
	}
	return nil
}

// PickOwnerCommand prints the roster email the heuristic picks for the given SKUs.
func PickOwnerCommand(roster []models.CSOwner, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("pick-owner", flag.ContinueOnError)
	var skus skuList
	fs.Var(&skus, "sku", "Product SKU (repeatable or comma separated)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, arg := range fs.Args() {
		_ = skus.Set(arg)
	}

	email, ok := sync.PickCSOwnerEmail(skus, roster, nil)
	if !ok {
		_, _ = fmt.Fprintln(out, "No CS owner matches these products")
		return nil
	}
	_, _ = fmt.Fprintln(out, email)
	return nil
}

// Command hbcn-tui browses the cycles of a network and tries cycle-time
// constraints on it interactively.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/capture"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
	"github.com/dd0wney/cluso-hbcn/pkg/storage"
)

func load(path string, structural, forwardCompletion bool) (*hbcn.Network, error) {
	if !structural {
		return storage.LoadNetwork(path)
	}
	g, err := storage.LoadGraph(path)
	if err != nil {
		return nil, err
	}
	return hbcn.Expand(g, hbcn.ExpandOptions{ForwardCompletion: forwardCompletion})
}

func main() {
	structural := flag.Bool("structural", false, "Read the input as a structural graph")
	forwardCompletion := flag.Bool("forward-completion", true, "Expand with forward completion (with -structural)")
	top := flag.Int("top", 50, "Number of cycles to list")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: hbcn-tui [flags] <network>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	n, err := load(flag.Arg(0), *structural, *forwardCompletion)
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	rep, err := analyse.Analyse(n, analyse.Options{TopCycles: *top})
	if err != nil {
		log.Fatalf("Failed to analyse network: %v", err)
	}

	entries, err := lp.Entries(lp.DefaultBackends, lp.BackendConfig{CBCPath: lp.DefaultCBCPath})
	if err != nil {
		log.Fatalf("Failed to create solver chain: %v", err)
	}
	engine := constrain.NewEngine(&constrain.EngineConfig{
		Chain: lp.NewChain(entries, &lp.ChainConfig{}),
	})

	p := tea.NewProgram(initialModel(flag.Arg(0), n, rep, engine), tea.WithAltScreen(), tea.WithOutput(capture.Stdout()))
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

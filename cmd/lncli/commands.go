package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func printJSON(resp interface{}) {
	b, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		fatal(err)
	}
	fmt.Fprintln(os.Stdout, string(b))
}

var addRouteCommand = cli.Command{
	Name:      "dev-add-route",
	Usage:     "add a static route to the channel graph",
	ArgsUsage: "src/dst/base/var/delay/minblocks",
	Description: `
	Inserts a single directed channel edge into the node's in-memory
	channel graph, without waiting for it to be gossiped. The literal is
	two 33-byte hex pubkeys followed by four slash-separated decimal
	fields: base fee (millisatoshi), proportional fee (parts per
	million), relative locktime delta (blocks), and minimum HTLC expiry
	(blocks).`,
	Action: actionAddRoute,
}

func actionAddRoute(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "dev-add-route")
	}

	client := getControlClient(ctx)
	req := struct {
		Route string `json:"route"`
	}{Route: ctx.Args().Get(0)}

	return client.post("/v1/addroute", req, nil)
}

var getChannelsCommand = cli.Command{
	Name:   "getchannels",
	Usage:  "list every channel edge known to the local graph",
	Action: actionGetChannels,
}

func actionGetChannels(ctx *cli.Context) error {
	client := getControlClient(ctx)

	var channels []interface{}
	if err := client.get("/v1/channels", &channels); err != nil {
		return err
	}
	printJSON(channels)
	return nil
}

var getNodesCommand = cli.Command{
	Name:   "getnodes",
	Usage:  "list every node known to the local graph",
	Action: actionGetNodes,
}

func actionGetNodes(ctx *cli.Context) error {
	client := getControlClient(ctx)

	var nodes []interface{}
	if err := client.get("/v1/nodes", &nodes); err != nil {
		return err
	}
	printJSON(nodes)
	return nil
}

var devRouteFailCommand = cli.Command{
	Name:      "dev-routefail",
	Usage:     "toggle whether every route query fails immediately",
	ArgsUsage: "true|false",
	Description: `
	Purely a testing aid: when enabled, every route query answered by
	the daemon's routing engine fails immediately, without running the
	pathfinder over the channel graph.`,
	Action: actionDevRouteFail,
}

func actionDevRouteFail(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "dev-routefail")
	}

	never := ctx.Args().Get(0) == "true"

	client := getControlClient(ctx)
	req := struct {
		Never bool `json:"never"`
	}{Never: never}

	return client.post("/v1/routefail", req, nil)
}

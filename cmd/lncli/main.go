// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
)

const (
	defaultMacaroonFilename = "admin.macaroon"
	defaultRPCHostPort      = "localhost:8675"
)

var (
	// Commit stores the current commit hash of this build. This should be
	// set using -ldflags during compilation.
	Commit string

	defaultLndDir       = defaultDataDir()
	defaultMacaroonPath = filepath.Join(defaultLndDir, defaultMacaroonFilename)
)

func defaultDataDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lnlite", "data")
	}
	return filepath.Join(dir, ".lnlite", "data")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lncli] %v\n", err)
	os.Exit(1)
}

// controlClient is the thin HTTP client every command uses to reach the
// daemon's control surface, carrying the admin macaroon on every request
// unless --no-macaroons was passed.
type controlClient struct {
	baseURL string
	macHex  string
}

func getControlClient(ctx *cli.Context) *controlClient {
	c := &controlClient{
		baseURL: "http://" + ctx.GlobalString("rpcserver"),
	}

	if ctx.GlobalBool("no-macaroons") {
		return c
	}

	macPath := cleanAndExpandPath(ctx.GlobalString("macaroonpath"))
	macBytes, err := ioutil.ReadFile(macPath)
	if err != nil {
		fatal(fmt.Errorf("unable to read macaroon %v: %v", macPath, err))
	}
	c.macHex = hex.EncodeToString(macBytes)

	return c
}

func (c *controlClient) get(path string, out interface{}) error {
	return c.do("GET", path, nil, out)
}

func (c *controlClient) post(path string, in, out interface{}) error {
	return c.do("POST", path, in, out)
}

func (c *controlClient) do(method, path string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	if c.macHex != "" {
		req.Header.Set("Macaroon", c.macHex)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func main() {
	app := cli.NewApp()
	app.Name = "lncli"
	app.Version = fmt.Sprintf("%s commit=%s", "0.1.0", Commit)
	app.Usage = "control plane for lnlite"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: defaultRPCHostPort,
			Usage: "host:port of the lnlite control surface",
		},
		cli.BoolFlag{
			Name:  "no-macaroons",
			Usage: "disable macaroon authentication",
		},
		cli.StringFlag{
			Name:  "macaroonpath",
			Value: defaultMacaroonPath,
			Usage: "path to admin macaroon file",
		},
	}
	app.Commands = []cli.Command{
		addRouteCommand,
		getChannelsCommand,
		getNodesCommand,
		devRouteFailCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string

		user, err := user.Current()
		if err == nil {
			homeDir = user.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

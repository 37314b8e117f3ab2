package command

import (
	"fmt"
)

// RootCommand prints the server welcome object.
type RootCommand struct {
	*Meta
}

func (c *RootCommand) Synopsis() string {
	return "Show the server's welcome object"
}

func (c *RootCommand) Help() string {
	return usage("root [options]", "Prints the JSON answer of GET / on the server.") + c.commonHelp()
}

func (c *RootCommand) Run(args []string) int {
	if _, ok := c.parse(c.FlagSet("root"), args, 0); !ok {
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.fail(err)
	}
	root, err := client.Root(c.context())
	if err != nil {
		return c.fail(err)
	}
	return c.output(root)
}

// UUIDsCommand prints server-generated uuids.
type UUIDsCommand struct {
	*Meta

	flagCount int
}

func (c *UUIDsCommand) Synopsis() string {
	return "Fetch server generated identifiers"
}

func (c *UUIDsCommand) Help() string {
	return usage("uuids [options]", `Prints identifiers generated by the server.

  -count=<n>           Number of identifiers (default: 1).`) + c.commonHelp()
}

func (c *UUIDsCommand) Run(args []string) int {
	f := c.FlagSet("uuids")
	f.IntVar(&c.flagCount, "count", 1, "Number of identifiers.")
	if _, ok := c.parse(f, args, 0); !ok {
		return 1
	}
	if c.flagCount < 1 {
		c.UI.Error(fmt.Sprintf("count must be at least 1, got %d", c.flagCount))
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.fail(err)
	}
	ids, err := client.UUIDs(c.context(), c.flagCount)
	if err != nil {
		return c.fail(err)
	}
	return c.output(ids)
}

package command

import (
	"encoding/json"
	"fmt"
)

// DocCreateCommand stores a JSON document under a fresh server uuid.
type DocCreateCommand struct {
	*Meta
}

func (c *DocCreateCommand) Synopsis() string {
	return "Create a document with a server generated id"
}

func (c *DocCreateCommand) Help() string {
	return usage("doc create [options] DB JSON",
		"Stores the JSON object under a new id in DB and prints id and revision.") + c.commonHelp()
}

func (c *DocCreateCommand) Run(args []string) int {
	pos, ok := c.parse(c.FlagSet("doc create"), args, 2)
	if !ok {
		return 1
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(pos[1]), &doc); err != nil {
		c.UI.Error(fmt.Sprintf("document is not valid JSON: %v", err))
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.fail(err)
	}
	ref, err := client.CreateDocument(c.context(), pos[0], doc)
	if err != nil {
		return c.fail(err)
	}
	return c.output(ref)
}

// DocGetCommand prints a document, optionally at a given revision.
type DocGetCommand struct {
	*Meta

	flagRev string
}

func (c *DocGetCommand) Synopsis() string {
	return "Print a document"
}

func (c *DocGetCommand) Help() string {
	return usage("doc get [options] DB ID", `Prints the document ID of database DB.

  -rev=<rev>           Revision to fetch (default: latest).`) + c.commonHelp()
}

func (c *DocGetCommand) Run(args []string) int {
	f := c.FlagSet("doc get")
	f.StringVar(&c.flagRev, "rev", "", "Revision to fetch.")
	pos, ok := c.parse(f, args, 2)
	if !ok {
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.fail(err)
	}
	doc, err := client.GetDocument(c.context(), pos[0], pos[1], c.flagRev)
	if err != nil {
		return c.fail(err)
	}
	return c.output(doc)
}

// DocDeleteCommand deletes a document revision.
type DocDeleteCommand struct {
	*Meta
}

func (c *DocDeleteCommand) Synopsis() string {
	return "Delete a document"
}

func (c *DocDeleteCommand) Help() string {
	return usage("doc delete [options] DB ID REV",
		"Deletes revision REV of document ID and prints the tombstone revision.") + c.commonHelp()
}

func (c *DocDeleteCommand) Run(args []string) int {
	pos, ok := c.parse(c.FlagSet("doc delete"), args, 3)
	if !ok {
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.fail(err)
	}
	rev, err := client.DeleteDocument(c.context(), pos[0], pos[1], pos[2])
	if err != nil {
		return c.fail(err)
	}
	return c.output(rev)
}

package command

// DBCreateCommand creates a database.
type DBCreateCommand struct {
	*Meta
}

func (c *DBCreateCommand) Synopsis() string {
	return "Create a database"
}

func (c *DBCreateCommand) Help() string {
	return usage("db create [options] NAME", "Creates the database NAME.") + c.commonHelp()
}

func (c *DBCreateCommand) Run(args []string) int {
	pos, ok := c.parse(c.FlagSet("db create"), args, 1)
	if !ok {
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.fail(err)
	}
	result, err := client.CreateDatabase(c.context(), pos[0])
	if err != nil {
		return c.fail(err)
	}
	return c.output(result)
}

// DBDeleteCommand deletes a database and its documents.
type DBDeleteCommand struct {
	*Meta
}

func (c *DBDeleteCommand) Synopsis() string {
	return "Delete a database"
}

func (c *DBDeleteCommand) Help() string {
	return usage("db delete [options] NAME", "Deletes the database NAME and all of its documents.") + c.commonHelp()
}

func (c *DBDeleteCommand) Run(args []string) int {
	pos, ok := c.parse(c.FlagSet("db delete"), args, 1)
	if !ok {
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.fail(err)
	}
	result, err := client.DeleteDatabase(c.context(), pos[0])
	if err != nil {
		return c.fail(err)
	}
	return c.output(result)
}

// DBExistsCommand prints whether a database exists.
type DBExistsCommand struct {
	*Meta
}

func (c *DBExistsCommand) Synopsis() string {
	return "Check whether a database exists"
}

func (c *DBExistsCommand) Help() string {
	return usage("db exists [options] NAME",
		"Prints true unless the server answers 404 for the database NAME.") + c.commonHelp()
}

func (c *DBExistsCommand) Run(args []string) int {
	pos, ok := c.parse(c.FlagSet("db exists"), args, 1)
	if !ok {
		return 1
	}
	client, err := c.Client()
	if err != nil {
		return c.fail(err)
	}
	exists, err := client.DatabaseExists(c.context(), pos[0])
	if err != nil {
		return c.fail(err)
	}
	return c.output(exists)
}

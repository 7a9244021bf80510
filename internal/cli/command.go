package cli

// Command is one sharednotes operation. Parse returns it together with the
// Config shared by all commands, and Run executes it.
type Command interface {
	// Name returns the sub-command name.
	Name() string
}

// DefaultFolderCommand creates the zone's default folder if it does not exist
// yet and prints it.
type DefaultFolderCommand struct{}

func (c *DefaultFolderCommand) Name() string {
	return "default-folder"
}

// FoldersCommand prints the zone's folders sorted by name.
type FoldersCommand struct{}

func (c *FoldersCommand) Name() string {
	return "folders"
}

// ServeCommand serves an in-memory record store until the context is done.
//
// Example usage:
//
//	sharednotes -listen 127.0.0.1:8000 serve
//	SHAREDNOTES_URL=ws://127.0.0.1:8000 sharednotes folders
type ServeCommand struct {
	Listen string
}

func (c *ServeCommand) Name() string {
	return "serve"
}

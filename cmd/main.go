package main

import (
	"fmt"
	"log"
	"os"
	"path"

	"github.com/hairymnstr/gristle"
	"github.com/hairymnstr/gristle/blockdev"
	"github.com/hairymnstr/gristle/ext2"
	"github.com/hairymnstr/gristle/fat"
	"github.com/hairymnstr/gristle/mount"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Usage: "Inspect FAT16/32 and experimental EXT2 disk images",
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Print volume geometry and a recursive directory listing",
				Action:    infoCommand,
				ArgsUsage: "IMAGE_FILE",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func infoCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one argument, the image file path")
	}

	dev, err := blockdev.NewFileDevice(c.Args().First(), 512, true)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer dev.Halt()

	fmt.Printf("block size:   %d bytes\n", dev.BlockSize())
	fmt.Printf("total blocks: %d\n", dev.VolumeSize())
	fmt.Printf("volume size:  %d bytes\n", int64(dev.BlockSize())*int64(dev.VolumeSize()))

	mounted, err := mount.Auto(dev, gristle.DefaultConfig(), gristle.MountFlagsAllowRead)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	switch {
	case mounted.FAT != nil:
		fmt.Println("filesystem:   FAT")
		return listFAT(mounted.FAT, "/", 0)
	case mounted.EXT2 != nil:
		fmt.Println("filesystem:   EXT2 (experimental, read-only)")
		return listEXT2(mounted.EXT2, "/", 0)
	default:
		return fmt.Errorf("mount succeeded but found neither FAT nor EXT2 (unreachable)")
	}
}

func listFAT(fs *fat.FS, dir string, depth int) error {
	fd, err := fs.Open(dir, gristle.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("opening %q: %w", dir, err)
	}
	defer fs.Close(fd)

	var subdirs []string
	for {
		entry, err := fs.ReadDirNext(fd)
		if err != nil {
			break
		}
		if entry.Name() == "." || entry.Name() == ".." {
			continue
		}
		printEntry(depth, entry.Name(), entry.IsDir(), entry.Size())
		if entry.IsDir() {
			subdirs = append(subdirs, path.Join(dir, entry.Name()))
		}
	}

	for _, sub := range subdirs {
		if err := listFAT(fs, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func listEXT2(ctx *ext2.Context, dir string, depth int) error {
	number, in, err := ctx.Lookup(dir)
	if err != nil {
		return fmt.Errorf("looking up %q: %w", dir, err)
	}
	if !in.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}

	entries, err := ctx.ReadDir(number)
	if err != nil {
		return fmt.Errorf("reading %q: %w", dir, err)
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		isDir := entry.FileType == ext2.FileTypeDir
		printEntry(depth, entry.Name, isDir, 0)
		if isDir {
			subdirs = append(subdirs, path.Join(dir, entry.Name))
		}
	}

	for _, sub := range subdirs {
		if err := listEXT2(ctx, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func printEntry(depth int, name string, isDir bool, size int64) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	if isDir {
		fmt.Printf("%s%s/\n", indent, name)
	} else {
		fmt.Printf("%s%s (%d bytes)\n", indent, name, size)
	}
}

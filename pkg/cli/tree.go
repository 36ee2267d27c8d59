package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/tdms"
	log "github.com/sirupsen/logrus"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 1, '\t', tabwriter.AlignRight)
}

// branch returns the tree prefix of one level.
func branch(last bool) string {
	if last {
		return "└──"
	}
	return "├──"
}

// DisplayFile writes every group and channel of f as a tree, with the channel
// properties when verbose is set.
func DisplayFile(w io.Writer, f *tdms.File, verbose bool) error {
	writer := newTabWriter(w)
	groups := f.Groups()

	for groupIter, group := range groups {
		lastGroup := groupIter == len(groups)-1
		fmt.Fprintf(writer, "%s %s\n", branch(lastGroup), group)

		channels := f.Channels(group)
		for chanIter, channel := range channels {
			lastChan := chanIter == len(channels)-1

			var chFormat strings.Builder
			if !lastGroup {
				chFormat.WriteString("|")
			}
			chFormat.WriteString("\t")
			chFormat.WriteString(branch(lastChan))
			chFormat.WriteString(" %s\n")
			fmt.Fprintf(writer, chFormat.String(), channel)

			if !verbose {
				continue
			}
			properties, err := f.Properties(group, channel)
			if err != nil {
				log.WithField("path", tdms.ObjectPath(group, channel)).Debugf("No properties: %v", err)
				continue
			}
			for propIter, prop := range properties {
				var propFormat strings.Builder
				if !lastGroup {
					propFormat.WriteString("|")
				}
				propFormat.WriteString("\t")
				if !lastChan {
					propFormat.WriteString("|")
				}
				propFormat.WriteString("\t")
				propFormat.WriteString(branch(propIter == len(properties)-1))
				propFormat.WriteString(" %s\t%s\n")
				fmt.Fprintf(writer, propFormat.String(), prop.Name, prop.String())
			}
		}
	}
	return writer.Flush()
}

// DisplayGroups writes one group name per line.
func DisplayGroups(w io.Writer, f *tdms.File) error {
	for _, group := range f.Groups() {
		if _, err := fmt.Fprintln(w, group); err != nil {
			return err
		}
	}
	return nil
}

// DisplayGroupChannels writes the channel names of group, one per line.
func DisplayGroupChannels(w io.Writer, f *tdms.File, group string) error {
	if !f.HasGroup(group) {
		return failure.New(failure.UnknownKey, "cli.DisplayGroupChannels", "file does not contain group %q", group)
	}
	log.Debugf("Found matching group %s", group)
	for _, channel := range f.Channels(group) {
		if _, err := fmt.Fprintln(w, channel); err != nil {
			return err
		}
	}
	return nil
}

// DisplayProperties writes the name and value of every property of the
// object named by names: none for the root, a group, or a group and channel.
func DisplayProperties(w io.Writer, f *tdms.File, names ...string) error {
	properties, err := f.Properties(names...)
	if err != nil {
		return err
	}
	writer := newTabWriter(w)
	for _, prop := range properties {
		fmt.Fprintf(writer, "%s\t%s\n", prop.Name, prop.String())
	}
	return writer.Flush()
}

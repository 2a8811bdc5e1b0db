// Command kmsinfo lists the outputs, CRTCs and planes of a DRM device
// the way the display driver sees them.
//
// With -display the outputs are bound to the RandR outputs of that X
// server and their KMS properties are published there.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/davecgh/go-spew/spew"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/kms"
	"github.com/NeowayLabs/drmkms/mode"
	"github.com/NeowayLabs/drmkms/output"
	"github.com/NeowayLabs/drmkms/plane"
	"github.com/NeowayLabs/drmkms/xrandr"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cardNum := flag.Int("card", -1, "Number of the /dev/dri card to open (default: the first one)")
	display := flag.String("display", "", "X display to publish output properties on")
	legacy := flag.Bool("legacy", false, "Do not enable universal planes")
	verbose := flag.Bool("v", false, "Log enumeration and dump raw structures")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("usage: kmsinfo [<flags>]")
	}

	if *verbose {
		drm.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if *cardNum < 0 {
		cards, err := drm.Cards()
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			return errors.New("no DRM card found")
		}
		*cardNum = cards[0]
	}

	card, err := kms.Open(*cardNum)
	if err != nil {
		return err
	}
	defer card.Close()

	v, err := card.Version()
	if err != nil {
		return err
	}
	fmt.Printf("card%d: %s (%s)\n", *cardNum, v, v.Desc)

	var host output.Host = printHost{w: os.Stdout}
	if *display != "" {
		xh, err := xrandr.Dial(*display)
		if err != nil {
			return err
		}
		defer xh.Close()
		host = xh
	}

	screen, err := kms.NewScreen(card, host, plane.Options{DisableUniversalPlanes: *legacy})
	if err != nil {
		return err
	}
	defer screen.Close()

	printOutputs(os.Stdout, screen)
	printCrtcs(os.Stdout, card, screen)
	printPlanes(os.Stdout, screen)

	if *verbose {
		spew.Fdump(os.Stderr, screen.Planes.Cache().Snapshot())
	}
	return nil
}

func printOutputs(w io.Writer, s *kms.Screen) {
	fmt.Fprintln(w, "outputs:")
	for _, o := range s.Outputs.Outputs() {
		status := o.Detect()
		fmt.Fprintf(w, "  %s (connector %d): %s, %dx%dmm, crtcs %#x\n",
			o.Name, o.ID, status, o.MmWidth, o.MmHeight, o.PossibleCrtcs)
		if status != output.StatusConnected {
			continue
		}
		o.CreateResources()
		if edid, err := o.EDID(); err == nil && edid != nil {
			fmt.Fprintf(w, "    EDID: %d bytes\n", len(edid))
		}
		for _, m := range o.Modes() {
			fmt.Fprintf(w, "    %s @ %dHz\n", m.String(), m.Vrefresh)
		}
	}
}

func printCrtcs(w io.Writer, card *kms.Card, s *kms.Screen) {
	fmt.Fprintln(w, "crtcs:")
	for _, c := range s.Crtcs {
		fmt.Fprintf(w, "  %d (index %d): primary plane %d", c.ID, c.Index, c.PrimaryPlaneID)
		if mc, err := card.Crtc(c.ID); err == nil && mc.ModeValid != 0 {
			fmt.Fprintf(w, ", %dx%d+%d+%d", mc.Width, mc.Height, mc.X, mc.Y)
		}
		fmt.Fprintf(w, ", outputs %v\n", s.Outputs.OutputIDs(c.ID))
	}
}

func printPlanes(w io.Writer, s *kms.Screen) {
	fmt.Fprintf(w, "overlay planes (universal planes %v):\n", s.Planes.UniversalPlanes())
	for _, p := range s.Planes.Overlays() {
		fmt.Fprintf(w, "  %d: crtcs %#x, %d formats\n", p.ID, p.PossibleCrtcs, len(p.Formats))
		for i, id := range p.Props.Props {
			prop, err := s.Planes.Property(id)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "    %s = %s\n", prop.Name, formatValue(prop, p.Props.Values[i]))
		}
	}
}

func formatValue(p *mode.Property, v uint64) string {
	if p.Has(mode.PropEnum) {
		for _, e := range p.Enums {
			if e.Value == v {
				return e.Name
			}
		}
	}
	return fmt.Sprint(v)
}

// printHost stands in for a display server and prints what would be
// published.
type printHost struct {
	w io.Writer
}

func (h printHost) CreateOutput(name string) (output.Publisher, error) {
	return &printOutput{w: h.w, name: name, atoms: make(map[string]output.Atom)}, nil
}

type printOutput struct {
	w     io.Writer
	name  string
	atoms map[string]output.Atom
}

func (p *printOutput) Atom(name string) (output.Atom, error) {
	a, ok := p.atoms[name]
	if !ok {
		a = output.Atom(len(p.atoms) + 1)
		p.atoms[name] = a
	}
	return a, nil
}

func (p *printOutput) AtomName(a output.Atom) (string, error) {
	for name, b := range p.atoms {
		if a == b {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown atom %d", a)
}

func (p *printOutput) ConfigureProperty(a output.Atom, rangeValued, immutable bool, values []int32) error {
	name, _ := p.AtomName(a)
	if rangeValued {
		fmt.Fprintf(p.w, "    property %s: range %v immutable=%v\n", name, values, immutable)
		return nil
	}
	var names []string
	for _, v := range values {
		n, _ := p.AtomName(output.Atom(v))
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintf(p.w, "    property %s: one of %v immutable=%v\n", name, names, immutable)
	return nil
}

func (p *printOutput) ChangeProperty(a output.Atom, v output.PropertyValue) error {
	name, _ := p.AtomName(a)
	if v.Type == output.AtomAtom && len(v.Data) == 1 {
		val, _ := p.AtomName(output.Atom(v.Data[0]))
		fmt.Fprintf(p.w, "    property %s = %s\n", name, val)
		return nil
	}
	fmt.Fprintf(p.w, "    property %s = %v\n", name, v.Data)
	return nil
}

func (p *printOutput) SetEDID(edid []byte) error { return nil }

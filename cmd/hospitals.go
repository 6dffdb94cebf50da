package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"carechat/hospital"
)

var (
	hospitalLimit int
	hospitalLat   float64
	hospitalLon   float64
)

// hospitalFinder is replaced in tests.
var hospitalFinder = func() *hospital.Client { return hospital.NewClient(nil) }

var hospitalsCmd = &cobra.Command{
	Use:   "hospitals",
	Short: "List hospitals near you",
	Long: `List hospitals within 30 km of your approximate location, grouped by
distance, with a Google Maps directions link for each.

Your location is estimated from your IP address unless --lat and --lon
are both given. In an emergency, call your local emergency number.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		finder := hospitalFinder()

		var loc *hospital.Location
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			loc = &hospital.Location{Latitude: hospitalLat, Longitude: hospitalLon}
		} else {
			var err error
			if loc, err = finder.UserLocation(ctx); err != nil {
				return fmt.Errorf("could not determine your location: %w", err)
			}
		}

		hospitals, err := finder.NearbyHospitals(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			return err
		}

		printHospitals(cmd.OutOrStdout(), *loc, hospital.GroupByRange(hospitals), hospitalLimit)
		return nil
	},
}

func printHospitals(out io.Writer, loc hospital.Location, groups hospital.Groups, limit int) {
	if loc.City != "" {
		fmt.Fprintf(out, "Current location: %s, %s\n\n", loc.City, loc.Region)
	}

	sections := []struct {
		title string
		list  []hospital.Hospital
	}{
		{"Within 5 km", groups.Nearby},
		{"5-20 km", groups.Medium},
		{"Beyond 20 km", groups.Far},
	}

	for _, s := range sections {
		fmt.Fprintf(out, "%s (%d)\n", headerStyle.Render(s.title), len(s.list))
		if len(s.list) == 0 {
			fmt.Fprintln(out, "  No hospitals found in this range")
		}
		for i, h := range s.list {
			if limit > 0 && i == limit {
				fmt.Fprintf(out, "  ... %d more\n", len(s.list)-limit)
				break
			}
			fmt.Fprintf(out, "  %s  %s\n", titleStyle.Render(h.Name), dateStyle.Render(fmt.Sprintf("%.1f km", h.Distance)))
			fmt.Fprintf(out, "    %s\n", h.Address)
			fmt.Fprintf(out, "    %s\n", idStyle.Render(hospital.DirectionsURL(loc, h)))
		}
		fmt.Fprintln(out)
	}
}

func init() {
	hospitalsCmd.Flags().IntVarP(&hospitalLimit, "limit", "n", 3, "Hospitals shown per distance group (0 for all)")
	hospitalsCmd.Flags().Float64Var(&hospitalLat, "lat", 0, "Latitude to search from")
	hospitalsCmd.Flags().Float64Var(&hospitalLon, "lon", 0, "Longitude to search from")
	rootCmd.AddCommand(hospitalsCmd)
}

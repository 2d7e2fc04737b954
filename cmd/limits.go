package cmd

import (
	"bytes"
	"fmt"

	"github.com/gekko3d/rtdemo/rt/core"
	"github.com/gekko3d/rtdemo/rt/device"
	"github.com/gekko3d/rtdemo/rt/gpu"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// ListLimits prints the adapter limits the tracer depends on and what the
// default frame needs from them.
func ListLimits(ctx *cli.Context) error {
	setupLogging(ctx)

	name, limits, err := gpu.QueryLimits(ctx.Bool("low-power"))
	if err != nil {
		return err
	}

	logger.Infof("adapter %s\n%s", name, limitsTable(limits, core.DefaultWidth, core.DefaultHeight))
	return nil
}

func limitsTable(l device.Limits, width, height uint32) string {
	framebuffer := uint64(width) * uint64(height) * 4
	maxPixels := l.MaxStorageBufferBindingSize / 4

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Limit", "Adapter", "Required"})
	table.Append([]string{
		"Max storage buffer binding size",
		fmt.Sprintf("%d", l.MaxStorageBufferBindingSize),
		fmt.Sprintf("%d (%dx%d framebuffer)", framebuffer, width, height),
	})
	table.Append([]string{
		"Max storage buffers per stage",
		fmt.Sprintf("%d", l.MaxStorageBuffersPerShaderStage),
		fmt.Sprintf("%d", gpu.MinStorageBuffers),
	})
	table.Append([]string{
		"Max workgroups per dimension",
		fmt.Sprintf("%d", l.MaxComputeWorkgroupsPerDimension),
		"",
	})
	table.Append([]string{
		"Max invocations per workgroup",
		fmt.Sprintf("%d", l.MaxComputeInvocationsPerWorkgroup),
		"",
	})
	table.SetFooter([]string{"", "MAX PIXELS", fmt.Sprintf("%d", maxPixels)})
	table.Render()
	return buf.String()
}

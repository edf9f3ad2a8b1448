//go:build linux

package v4l2

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/smazurov/camctl/pkg/descriptor"
)

// Formats enumerates the capture pixel formats. EINVAL ends the enumeration.
func (d *Device) Formats() ([]descriptor.FormatDesc, error) {
	var formats []descriptor.FormatDesc

	for i := uint32(0); i < descriptor.MaxEnumIterations; i++ {
		buf := descriptor.FormatDescRequest(i, bufTypeVideoCapture)
		if err := ioctl(d.fd, vidiocEnumFmt, buf); err != nil {
			if errors.Is(err, unix.EINVAL) {
				break
			}
			return formats, fmt.Errorf("failed to enumerate format %d: %w", i, err)
		}

		desc, err := descriptor.DecodeFormatDesc(buf)
		if err != nil {
			continue
		}
		formats = append(formats, desc)
	}

	return formats, nil
}

// FrameSizes returns the resolutions supported for a pixel format. Range
// entries are reduced to the common resolutions inside the range. ENOTTY
// (no frame size enumeration) yields an empty slice.
func (d *Device) FrameSizes(pixelFormat uint32) ([]descriptor.Resolution, error) {
	var resolutions []descriptor.Resolution

	for i := uint32(0); i < descriptor.MaxEnumIterations; i++ {
		buf := descriptor.FrameSizeRequest(i, pixelFormat)
		if err := ioctl(d.fd, vidiocEnumFramesizes, buf); err != nil {
			if errors.Is(err, unix.EINVAL) {
				break
			}
			if errors.Is(err, unix.ENOTTY) {
				return []descriptor.Resolution{}, nil
			}
			return resolutions, fmt.Errorf("failed to enumerate frame size %d: %w", i, err)
		}

		size, err := descriptor.DecodeFrameSize(buf)
		if err != nil {
			continue
		}
		resolutions = append(resolutions, size.Resolutions()...)
		if size.Type != descriptor.FrameSizeDiscrete {
			// a range is reported as a single entry
			break
		}
	}

	return resolutions, nil
}

// FrameRates returns the discrete frame rates for a format and size.
// Non-discrete intervals are not expanded.
func (d *Device) FrameRates(pixelFormat, width, height uint32) ([]float64, error) {
	var rates []float64

	for i := uint32(0); i < descriptor.MaxEnumIterations; i++ {
		buf := descriptor.FrameIntervalRequest(i, pixelFormat, width, height)
		if err := ioctl(d.fd, vidiocEnumFrameintervals, buf); err != nil {
			if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOTTY) {
				break
			}
			return rates, fmt.Errorf("failed to enumerate frame interval %d: %w", i, err)
		}

		ival, err := descriptor.DecodeFrameInterval(buf)
		if err != nil {
			continue
		}
		if fps, ok := ival.FPS(); ok {
			rates = append(rates, fps)
		}
	}

	return rates, nil
}

// Modes returns the cross product of formats, sizes and frame rates. A format
// without sizes reports descriptor.FallbackResolution, and a size without
// discrete intervals reports descriptor.DefaultFPS. Failures below the
// format level are skipped.
func (d *Device) Modes() ([]Mode, error) {
	formats, err := d.Formats()
	if err != nil && len(formats) == 0 {
		return nil, err
	}

	var modes []Mode
	for _, f := range formats {
		sizes, _ := d.FrameSizes(f.PixelFormat)
		if len(sizes) == 0 {
			sizes = []descriptor.Resolution{descriptor.FallbackResolution}
		}
		for _, size := range sizes {
			rates, _ := d.FrameRates(f.PixelFormat, size.Width, size.Height)
			if len(rates) == 0 {
				rates = []float64{descriptor.DefaultFPS}
			}
			for _, fps := range rates {
				modes = append(modes, Mode{
					PixelFormat: f.PixelFormat,
					Description: f.Description,
					Width:       size.Width,
					Height:      size.Height,
					FPS:         fps,
				})
			}
		}
	}
	return modes, nil
}

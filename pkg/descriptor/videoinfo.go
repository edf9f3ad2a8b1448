package descriptor

// VIDEOINFOHEADER layout.
const (
	videoInfoAvgTimeOffset = 32
	bitmapHeaderOffset     = 40
	bitmapHeaderSize       = 40

	// VideoInfoMinSize is the smallest buffer DecodeVideoInfo accepts.
	VideoInfoMinSize = bitmapHeaderOffset + bitmapHeaderSize

	// The Win32 VIDEOINFOHEADER carries dwBitRate and dwBitErrorRate
	// between the RECTs and AvgTimePerFrame.
	win32BitRateOffset = 32
	win32BitRateSize   = 8

	// VideoInfoHeaderSize is sizeof(VIDEOINFOHEADER) as returned by
	// IMFMediaType::GetRepresentation.
	VideoInfoHeaderSize = VideoInfoMinSize + win32BitRateSize
)

// hundredNanosPerSecond converts REFERENCE_TIME units to seconds.
const hundredNanosPerSecond = 10_000_000

// VideoInfo is the part of a Windows VIDEOINFOHEADER the backends use.
type VideoInfo struct {
	AvgTimePerFrame uint64
	Width           uint32
	Height          uint32
	BitCount        uint16
	Compression     uint32
}

// FPS derives the frame rate from AvgTimePerFrame, falling back to
// DefaultFPS when the device leaves it zero.
func (v VideoInfo) FPS() float64 {
	if v.AvgTimePerFrame == 0 {
		return DefaultFPS
	}
	return float64(hundredNanosPerSecond) / float64(v.AvgTimePerFrame)
}

// PixelFormat renders the compression FOURCC. Uncompressed RGB reports
// BI_RGB (0) as compression, so the bit count is used instead.
func (v VideoInfo) PixelFormat() string {
	if v.Compression == 0 {
		switch v.BitCount {
		case 24:
			return "RGB3"
		case 32:
			return "RGB4"
		default:
			return "RGB?"
		}
	}
	return FourCC(v.Compression)
}

// CompactVideoInfoHeader drops the bit rate fields of a Win32
// VIDEOINFOHEADER, yielding the layout DecodeVideoInfo reads.
func CompactVideoInfoHeader(raw []byte) ([]byte, error) {
	if len(raw) < VideoInfoHeaderSize {
		return nil, ErrShortBuffer
	}
	out := make([]byte, 0, len(raw)-win32BitRateSize)
	out = append(out, raw[:win32BitRateOffset]...)
	return append(out, raw[win32BitRateOffset+win32BitRateSize:]...), nil
}

// DecodeVideoInfoHeader decodes the buffer GetRepresentation returns.
func DecodeVideoInfoHeader(raw []byte) (VideoInfo, error) {
	buf, err := CompactVideoInfoHeader(raw)
	if err != nil {
		return VideoInfo{}, err
	}
	return DecodeVideoInfo(buf)
}

// absInt32 is |v| as uint32, defined for math.MinInt32.
func absInt32(v int32) uint32 {
	if v < 0 {
		return uint32(^v) + 1
	}
	return uint32(v)
}

// DecodeVideoInfo decodes a VIDEOINFOHEADER byte buffer. The two leading
// RECTs are skipped. A negative height (bottom-up bitmap) is reported as its
// absolute value.
func DecodeVideoInfo(buf []byte) (VideoInfo, error) {
	var v VideoInfo
	if len(buf) < VideoInfoMinSize {
		return v, ErrShortBuffer
	}

	r := NewReader(buf)
	if err := r.Seek(videoInfoAvgTimeOffset); err != nil {
		return v, err
	}
	if err := r.fields(&v.AvgTimePerFrame); err != nil {
		return v, err
	}

	if err := r.Seek(bitmapHeaderOffset + 4); err != nil {
		return v, err
	}
	var height int32
	if err := r.fields(&v.Width, &height); err != nil {
		return v, err
	}
	v.Height = absInt32(height)

	if err := r.Seek(bitmapHeaderOffset + 14); err != nil {
		return v, err
	}
	if err := r.fields(&v.BitCount, &v.Compression); err != nil {
		return v, err
	}
	return v, nil
}

//go:build windows

package devices

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/smazurov/camctl/internal/deverr"
)

var (
	mfDevSourceAttributeSourceType       = windows.GUID{Data1: 0xc60ac5fe, Data2: 0x252a, Data3: 0x478f, Data4: [8]byte{0xa0, 0xef, 0xbc, 0x8f, 0xa5, 0xf7, 0xca, 0xd3}}
	mfDevSourceAttributeSourceTypeVidcap = windows.GUID{Data1: 0x8ac3587a, Data2: 0x4ae7, Data3: 0x42d8, Data4: [8]byte{0x99, 0xe0, 0x0a, 0x60, 0x13, 0xee, 0xf9, 0x0f}}
	mfDevSourceAttributeFriendlyName     = windows.GUID{Data1: 0x60d0e559, Data2: 0x52f8, Data3: 0x4fa2, Data4: [8]byte{0xbb, 0xce, 0xac, 0xdb, 0x34, 0xa8, 0xec, 0x01}}
	mfDevSourceAttributeSymbolicLink     = windows.GUID{Data1: 0x58f0aad8, Data2: 0x22bf, Data3: 0x4f8a, Data4: [8]byte{0xbb, 0x3d, 0xd2, 0xc4, 0x97, 0x8c, 0x6e, 0x2f}}

	formatVideoInfo = windows.GUID{Data1: 0x05589f80, Data2: 0xc356, Data3: 0x11ce, Data4: [8]byte{0xbf, 0x01, 0x00, 0xaa, 0x00, 0x55, 0x59, 0x5a}}

	iidIMFMediaSource   = windows.GUID{Data1: 0x279a808d, Data2: 0xaec7, Data3: 0x40c8, Data4: [8]byte{0x9c, 0x6b, 0xa6, 0xb4, 0x92, 0xc7, 0x8a, 0x66}}
	iidIAMVideoProcAmp  = windows.GUID{Data1: 0xc6e13360, Data2: 0x30ac, Data3: 0x11d0, Data4: [8]byte{0xa1, 0x8c, 0x00, 0xa0, 0xc9, 0x11, 0x89, 0x56}}
	iidIAMCameraControl = windows.GUID{Data1: 0xc6e13370, Data2: 0x30ac, Data3: 0x11d0, Data4: [8]byte{0xa1, 0x8c, 0x00, 0xa0, 0xc9, 0x11, 0x89, 0x56}}
)

const (
	mfVersion                      = 0x00020070
	coinitApartmentThreaded        = 0x2
	mfSourceReaderFirstVideoStream = 0xFFFFFFFC

	// DirectShow property flags for IAMVideoProcAmp and IAMCameraControl.
	dshowFlagAuto   = 0x0001
	dshowFlagManual = 0x0002

	hrPropIDUnsupported = 0x80070490
)

var (
	modmfplat      = windows.NewLazySystemDLL("mfplat.dll")
	modmf          = windows.NewLazySystemDLL("mf.dll")
	modmfreadwrite = windows.NewLazySystemDLL("mfreadwrite.dll")
	modole32       = windows.NewLazySystemDLL("ole32.dll")

	procMFStartup                           = modmfplat.NewProc("MFStartup")
	procMFShutdown                          = modmfplat.NewProc("MFShutdown")
	procMFCreateAttributes                  = modmfplat.NewProc("MFCreateAttributes")
	procMFEnumDeviceSources                 = modmf.NewProc("MFEnumDeviceSources")
	procMFCreateSourceReaderFromMediaSource = modmfreadwrite.NewProc("MFCreateSourceReaderFromMediaSource")
	procCoInitializeEx                      = modole32.NewProc("CoInitializeEx")
	procCoUninitialize                      = modole32.NewProc("CoUninitialize")
	procCoTaskMemFree                       = modole32.NewProc("CoTaskMemFree")
)

// hresultError keeps the failing call and its HRESULT.
type hresultError struct {
	call string
	hr   uintptr
}

func (e *hresultError) Error() string {
	return fmt.Sprintf("%s failed: 0x%x", e.call, uint32(e.hr))
}

func check(call string, hr uintptr) error {
	if hr != 0 {
		return &hresultError{call: call, hr: hr}
	}
	return nil
}

func isPropUnsupported(err error) bool {
	var he *hresultError
	return errors.As(err, &he) && uint32(he.hr) == hrPropIDUnsupported
}

// withCOM runs fn on a goroutine locked to one OS thread with an
// apartment-threaded COM and Media Foundation session.
func withCOM(fn func() error) error {
	done := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hr, _, _ := syscall.SyscallN(procCoInitializeEx.Addr(), 0, coinitApartmentThreaded)
		if hr != 0 && hr != 1 { // S_OK or S_FALSE
			done <- fmt.Errorf("CoInitializeEx failed: 0x%x", uint32(hr))
			return
		}
		defer syscall.SyscallN(procCoUninitialize.Addr())

		hr, _, _ = syscall.SyscallN(procMFStartup.Addr(), mfVersion, 0)
		if err := check("MFStartup", hr); err != nil {
			done <- err
			return
		}
		defer syscall.SyscallN(procMFShutdown.Addr())

		done <- fn()
	}()
	return <-done
}

// unknownVtbl is the IUnknown prefix shared by every COM vtable.
type unknownVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
}

type unknown struct {
	vtbl *unknownVtbl
}

func (u *unknown) release() {
	if u != nil && u.vtbl != nil {
		syscall.SyscallN(u.vtbl.Release, uintptr(unsafe.Pointer(u)))
	}
}

func (u *unknown) queryInterface(iid *windows.GUID) (unsafe.Pointer, error) {
	var obj unsafe.Pointer
	hr, _, _ := syscall.SyscallN(u.vtbl.QueryInterface,
		uintptr(unsafe.Pointer(u)),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&obj)))
	if err := check("QueryInterface", hr); err != nil {
		return nil, err
	}
	return obj, nil
}

type attributesVtbl struct {
	unknownVtbl
	GetItem            uintptr
	GetItemType        uintptr
	CompareItem        uintptr
	Compare            uintptr
	GetUINT32          uintptr
	GetUINT64          uintptr
	GetDouble          uintptr
	GetGUID            uintptr
	GetStringLength    uintptr
	GetString          uintptr
	GetAllocatedString uintptr
	GetBlobSize        uintptr
	GetBlob            uintptr
	GetAllocatedBlob   uintptr
	GetUnknown         uintptr
	SetItem            uintptr
	DeleteItem         uintptr
	DeleteAllItems     uintptr
	SetUINT32          uintptr
	SetUINT64          uintptr
	SetDouble          uintptr
	SetGUID            uintptr
	SetString          uintptr
	SetBlob            uintptr
	SetUnknown         uintptr
	LockStore          uintptr
	UnlockStore        uintptr
	GetCount           uintptr
	GetItemByIndex     uintptr
	CopyAllItems       uintptr
}

// mfAttributes is IMFAttributes.
type mfAttributes struct {
	vtbl *attributesVtbl
}

func (a *mfAttributes) release() { (*unknown)(unsafe.Pointer(a)).release() }

func (a *mfAttributes) setGUID(key, value *windows.GUID) error {
	hr, _, _ := syscall.SyscallN(a.vtbl.SetGUID,
		uintptr(unsafe.Pointer(a)),
		uintptr(unsafe.Pointer(key)),
		uintptr(unsafe.Pointer(value)))
	return check("SetGUID", hr)
}

func (a *mfAttributes) getString(key *windows.GUID) (string, error) {
	var length uint32
	hr, _, _ := syscall.SyscallN(a.vtbl.GetStringLength,
		uintptr(unsafe.Pointer(a)),
		uintptr(unsafe.Pointer(key)),
		uintptr(unsafe.Pointer(&length)))
	if err := check("GetStringLength", hr); err != nil {
		return "", err
	}

	buf := make([]uint16, length+1)
	hr, _, _ = syscall.SyscallN(a.vtbl.GetString,
		uintptr(unsafe.Pointer(a)),
		uintptr(unsafe.Pointer(key)),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(length+1),
		0)
	if err := check("GetString", hr); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf), nil
}

type activateVtbl struct {
	attributesVtbl
	ActivateObject uintptr
	ShutdownObject uintptr
	DetachObject   uintptr
}

// mfActivate is IMFActivate.
type mfActivate struct {
	vtbl *activateVtbl
}

func (a *mfActivate) attributes() *mfAttributes { return (*mfAttributes)(unsafe.Pointer(a)) }

func (a *mfActivate) release() { (*unknown)(unsafe.Pointer(a)).release() }

func (a *mfActivate) activateSource() (*mfMediaSource, error) {
	var obj *mfMediaSource
	hr, _, _ := syscall.SyscallN(a.vtbl.ActivateObject,
		uintptr(unsafe.Pointer(a)),
		uintptr(unsafe.Pointer(&iidIMFMediaSource)),
		uintptr(unsafe.Pointer(&obj)))
	if err := check("ActivateObject", hr); err != nil {
		return nil, err
	}
	return obj, nil
}

type mediaSourceVtbl struct {
	unknownVtbl
	GetEvent                     uintptr
	BeginGetEvent                uintptr
	EndGetEvent                  uintptr
	QueueEvent                   uintptr
	GetCharacteristics           uintptr
	CreatePresentationDescriptor uintptr
	Start                        uintptr
	Stop                         uintptr
	Pause                        uintptr
	Shutdown                     uintptr
}

// mfMediaSource is IMFMediaSource.
type mfMediaSource struct {
	vtbl *mediaSourceVtbl
}

func (s *mfMediaSource) unknown() *unknown { return (*unknown)(unsafe.Pointer(s)) }

// close shuts the source down and drops the reference.
func (s *mfMediaSource) close() {
	if s == nil || s.vtbl == nil {
		return
	}
	syscall.SyscallN(s.vtbl.Shutdown, uintptr(unsafe.Pointer(s)))
	s.unknown().release()
}

func (s *mfMediaSource) procAmp() (*amControl, error) {
	p, err := s.unknown().queryInterface(&iidIAMVideoProcAmp)
	if err != nil {
		return nil, err
	}
	return (*amControl)(p), nil
}

func (s *mfMediaSource) cameraControl() (*amControl, error) {
	p, err := s.unknown().queryInterface(&iidIAMCameraControl)
	if err != nil {
		return nil, err
	}
	return (*amControl)(p), nil
}

type sourceReaderVtbl struct {
	unknownVtbl
	GetStreamSelection  uintptr
	SetStreamSelection  uintptr
	GetNativeMediaType  uintptr
	GetCurrentMediaType uintptr
	SetCurrentMediaType uintptr
	SetCurrentPosition  uintptr
	ReadSample          uintptr
	Flush               uintptr
	GetServiceForStream uintptr
}

// mfSourceReader is IMFSourceReader.
type mfSourceReader struct {
	vtbl *sourceReaderVtbl
}

func newSourceReader(src *mfMediaSource) (*mfSourceReader, error) {
	var r *mfSourceReader
	hr, _, _ := syscall.SyscallN(procMFCreateSourceReaderFromMediaSource.Addr(),
		uintptr(unsafe.Pointer(src)),
		0,
		uintptr(unsafe.Pointer(&r)))
	if err := check("MFCreateSourceReaderFromMediaSource", hr); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mfSourceReader) release() { (*unknown)(unsafe.Pointer(r)).release() }

func (r *mfSourceReader) nativeMediaType(stream, index uint32) (*mfMediaType, error) {
	var t *mfMediaType
	hr, _, _ := syscall.SyscallN(r.vtbl.GetNativeMediaType,
		uintptr(unsafe.Pointer(r)),
		uintptr(stream),
		uintptr(index),
		uintptr(unsafe.Pointer(&t)))
	if err := check("GetNativeMediaType", hr); err != nil {
		return nil, err
	}
	return t, nil
}

type mediaTypeVtbl struct {
	attributesVtbl
	GetMajorType       uintptr
	IsCompressedFormat uintptr
	IsEqual            uintptr
	GetRepresentation  uintptr
	FreeRepresentation uintptr
}

// mfMediaType is IMFMediaType.
type mfMediaType struct {
	vtbl *mediaTypeVtbl
}

func (t *mfMediaType) release() { (*unknown)(unsafe.Pointer(t)).release() }

// amMediaType mirrors AM_MEDIA_TYPE.
type amMediaType struct {
	MajorType           windows.GUID
	SubType             windows.GUID
	FixedSizeSamples    int32
	TemporalCompression int32
	SampleSize          uint32
	FormatType          windows.GUID
	Unk                 uintptr
	FormatSize          uint32
	Format              uintptr
}

// videoInfo returns a copy of the VIDEOINFOHEADER bytes of the media type.
func (t *mfMediaType) videoInfo() ([]byte, error) {
	var rep *amMediaType
	hr, _, _ := syscall.SyscallN(t.vtbl.GetRepresentation,
		uintptr(unsafe.Pointer(t)),
		uintptr(unsafe.Pointer(&formatVideoInfo)),
		uintptr(unsafe.Pointer(&rep)))
	if err := check("GetRepresentation", hr); err != nil {
		return nil, err
	}
	defer syscall.SyscallN(t.vtbl.FreeRepresentation,
		uintptr(unsafe.Pointer(t)),
		uintptr(unsafe.Pointer(&formatVideoInfo)),
		uintptr(unsafe.Pointer(rep)))

	if rep.FormatType != formatVideoInfo || rep.Format == 0 || rep.FormatSize == 0 {
		return nil, errors.New("media type has no VIDEOINFOHEADER")
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(rep.Format)), rep.FormatSize)
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

type amControlVtbl struct {
	unknownVtbl
	GetRange uintptr
	Set      uintptr
	Get      uintptr
}

// amControl is IAMVideoProcAmp or IAMCameraControl; both share one
// vtable layout.
type amControl struct {
	vtbl *amControlVtbl
}

func (c *amControl) release() { (*unknown)(unsafe.Pointer(c)).release() }

func (c *amControl) getRange(prop int32) (lo, hi, step, def, flags int32, err error) {
	hr, _, _ := syscall.SyscallN(c.vtbl.GetRange,
		uintptr(unsafe.Pointer(c)),
		uintptr(prop),
		uintptr(unsafe.Pointer(&lo)),
		uintptr(unsafe.Pointer(&hi)),
		uintptr(unsafe.Pointer(&step)),
		uintptr(unsafe.Pointer(&def)),
		uintptr(unsafe.Pointer(&flags)))
	err = check("GetRange", hr)
	return
}

func (c *amControl) get(prop int32) (value, flags int32, err error) {
	hr, _, _ := syscall.SyscallN(c.vtbl.Get,
		uintptr(unsafe.Pointer(c)),
		uintptr(prop),
		uintptr(unsafe.Pointer(&value)),
		uintptr(unsafe.Pointer(&flags)))
	err = check("Get", hr)
	return
}

func (c *amControl) set(prop, value, flags int32) error {
	hr, _, _ := syscall.SyscallN(c.vtbl.Set,
		uintptr(unsafe.Pointer(c)),
		uintptr(prop),
		uintptr(value),
		uintptr(flags))
	return check("Set", hr)
}

// mfDevice is one video capture source found by Media Foundation.
type mfDevice struct {
	name     string
	link     string
	activate *mfActivate
}

// enumerateVideoSources lists capture sources. The caller must call the
// returned release func. Must run inside withCOM.
func enumerateVideoSources() ([]mfDevice, func(), error) {
	var attrs *mfAttributes
	hr, _, _ := syscall.SyscallN(procMFCreateAttributes.Addr(), uintptr(unsafe.Pointer(&attrs)), 1)
	if err := check("MFCreateAttributes", hr); err != nil {
		return nil, func() {}, err
	}
	defer attrs.release()

	if err := attrs.setGUID(&mfDevSourceAttributeSourceType, &mfDevSourceAttributeSourceTypeVidcap); err != nil {
		return nil, func() {}, err
	}

	var array **mfActivate
	var count uint32
	hr, _, _ = syscall.SyscallN(procMFEnumDeviceSources.Addr(),
		uintptr(unsafe.Pointer(attrs)),
		uintptr(unsafe.Pointer(&array)),
		uintptr(unsafe.Pointer(&count)))
	if err := check("MFEnumDeviceSources", hr); err != nil {
		return nil, func() {}, err
	}
	if count == 0 || array == nil {
		return nil, func() {}, nil
	}

	activates := unsafe.Slice(array, count)
	devices := make([]mfDevice, 0, count)
	for _, a := range activates {
		d := mfDevice{activate: a}
		d.name, _ = a.attributes().getString(&mfDevSourceAttributeFriendlyName)
		d.link, _ = a.attributes().getString(&mfDevSourceAttributeSymbolicLink)
		devices = append(devices, d)
	}

	release := func() {
		for _, a := range activates {
			a.release()
		}
		syscall.SyscallN(procCoTaskMemFree.Addr(), uintptr(unsafe.Pointer(array)))
	}
	return devices, release, nil
}

// openSource activates the source at index. Must run inside withCOM.
func openSource(index int) (*mfMediaSource, error) {
	devices, release, err := enumerateVideoSources()
	defer release()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(devices) {
		return nil, deverr.Newf(deverr.KindDeviceNotFound, "no video source at index %d", index)
	}
	return devices[index].activate.activateSource()
}

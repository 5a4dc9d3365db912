package transport

// FakeUSB exposes the bulk/control fake to external tests.
type FakeUSB = fakeUSB

// NewFakeFTDI returns an FTDI whose endpoints are served by usb.
func NewFakeFTDI(packets [][]byte) (*FTDI, *FakeUSB) {
	usb := &fakeUSB{packets: packets}
	return newTestFTDI(usb, 1), usb
}

// Written returns everything sent to the OUT endpoint.
func (f *fakeUSB) Written() []byte {
	return f.written.Bytes()
}

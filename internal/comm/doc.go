// Package comm models the transport channels devices communicate over.
//
// A Tunnel is a shared broadcast medium (RF or IP). Devices attach as
// receivers; a send fans the packet out to every attached receiver except
// the sender by scheduling one delivery event per receiver at the current
// simulation time. Delivery therefore happens inside the event loop, in
// deterministic order, with no goroutines or channels involved.
//
// A tunnel with no eligible receivers drops the packet, mirroring radio
// traffic nobody is listening to.
package comm

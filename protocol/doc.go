package protocol

// This package implements the connection side of the game protocol (release
// 1.8, protocol version 47) that lodestone speaks with its clients.
//
// A Conn turns the raw bytes read from a socket into decoded packets that
// are handed to a Handler, and turns calls to its Send* methods into framed,
// optionally compressed and optionally encrypted bytes handed to a
// Transport.
//
// - `Frame`   - One length prefixed unit of the byte stream, see package frame.
// - `Packet`  - A varint type code followed by fields, carried in one frame.
// - `State`   - The phase of the connection. Packet type codes are only
//               meaningful together with the state they were received in.
// - `Handler` - The domain collaborator notified of every decoded packet.
//
// === States
//
//   Handshaking (0) -> Status (1)
//                   -> Login (2) -> Play (3)
//
// Errored (255) is entered on a protocol violation. Every frame received
// afterwards is dropped without being decoded.
//
// === Receive pipeline
//
//   transport -> decrypt -> buffer -> frame.Decode -> dispatch -> Handler
//
// DataReceived appends the decrypted chunk to the receive buffer and then
// decodes frames until the buffer runs dry. An incomplete frame is left in
// the buffer untouched and retried when the next chunk arrives, so a
// frame split across any number of reads decodes exactly like a frame
// received in one piece.
//
// Each packet body is decoded from its own bounded cursor. Reading past the
// end of the body, or leaving bytes unread, is reported to the Handler as a
// packet error. It does not stop the pipeline.
//
// === Send path
//
//   Send* -> WritePacket -> frame.Encode -> encrypt -> Transport.Write
//
// WritePacket holds the connection's write lock from the first payload byte
// until the encrypted frame has been handed to the transport. Packets built
// concurrently never interleave on the wire, and a packet whose payload
// fails to build is dropped whole.
//
// === Login
//
//   > Handshake(next state 2)
//   > LoginStart(name)
//   < EncryptionRequest(server id, public key, nonce)   authenticated only
//   > EncryptionResponse(rsa(secret), rsa(nonce))       authenticated only
//     ... both directions are encrypted from here on ...
//   < SetCompression(threshold)
//     ... both directions use compressed framing from here on ...
//   < LoginSuccess(uuid, name)
//
// Any mismatch in the encryption response kicks the client with
// "Hacked client" and leaves the cipher disabled.

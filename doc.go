/*
Copyright (c) 2013-2018 The btcsuite developers
Copyright (c) 2015-2016 The Decred developers
Use of this source code is governed by an ISC
license that can be found in the LICENSE file.

Lightd is a header-only light client implementation written in Go.

It verifies block headers against proof of work, producer signature, and
DAG-structural rules, tracks the set of chain tips, and synchronizes against
full node peers over their RPC interface. It holds no full chain state.

The default options are sane for most users. This means lightd will work 'out
of the box' for most users. However, there are also a wide variety of flags
that can be used to control it.

Usage:

	lightd [OPTIONS]

For an up-to-date help message:

	lightd --help

The long form of all option flags (except -C) can be specified in a
configuration file that is automatically parsed when lightd starts up. By
default, the configuration file is located at ~/.lightd/lightd.conf on
POSIX-style operating systems and %LOCALAPPDATA%\lightd\lightd.conf on
Windows. The -C (--configfile) flag can be used to override this location.
*/
package main

/*
Command xthird is a tethered FORTH: the interpreter runs on the host, while a
small target board, running a three instruction monitor, lends it its memory
and its processor.

The interpreter is THIRD, built up from FIRST, an incredibly small language
that is sufficient to define THIRD, which is mostly like FORTH.  FIRST is
extended by three primitives that reach out over a serial line to the target:

	xc@    ( addr -- byte )   read a byte of target memory
	xc!    ( byte addr -- )   write a byte of target memory
	xcall  ( addr -- )        call a subroutine on the target

Each becomes one monitor command: the 16 bit address, most significant byte
first, then the command byte; 0x24 for a read, which the target answers with
one byte, 0x38 for a write, followed by the value to write, and 0x08 for a
call.  Nothing is sent back for a write or a call.

Usage:

	xthird [-d DEVICE] [-b BAUD] [-load ADDR:FILE]... [FILE]...

The kernel third.fs is read first, then any named files, then standard input.
Errors in a line of input, like an undefined word or a target that does not
answer, are reported with a "?" and the interpreter carries on with the next
line.  Failing to open the serial port, or an unusable command line, is fatal.

Section 1: see first.go

Section 2: Motivating THIRD

What is missing from FIRST?  A number of important primitives aren't
implemented, but are easy to build.  drop can be { 0 * + }: multiply the top
of the stack by 0, and add it to the next one.  dup can use the memory cells
3 and 4, which FIRST leaves unused: { 3 ! 3 @ 3 @ }.  THIRD never uses pick,
which is only provided because it cannot be built from the rest.

More importantly there is no control flow: there is recursion, but no way to
write a recursive routine that terminates.  There is no "command mode" either,
no way to run some words outside of a : definition, and no comments.  FORTH
also defines new data types with <builds and does>, which we want too.

So control flow comes first, then parsing and a command mode.  Throughout,
location 0 holds the dictionary pointer, location 1 the return stack pointer,
and location 2 always holds 0, the code of the fake word that means "pushint".
Locations 10 and 11 hold the base of the return stack and of the dictionary,
and location 12 the word to resume at after an error.

Section 3: see third.go and third.fs
*/
package main

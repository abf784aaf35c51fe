/*
Command encke updates a catalog of minor planet orbits to a new epoch.

Contents

  Program overview
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

Input is a text catalog of osculating orbital elements, one object per line,
under a column header line.  Output is the same catalog with every record
propagated to a common target epoch.  Motion is integrated with perturbations
by the eight planets, Pluto, the Moon, and optionally the asteroids Ceres,
Pallas, and Vesta.

Records are processed in parallel.  Output order is input order and output
content does not depend on the number of workers.

Sample run:

    encke synth -n 1000 cat.txt
    encke --target "2024 10 17.0" cat.txt cat2024.txt

A later run given the earlier output with --previous copies records whose
input fields and run parameters are unchanged rather than integrating them
again.

    encke --target "2024 10 17.0" --previous cat2024.txt cat.txt new.txt


Command line usage

    encke [flags] <catalog> <output>     update catalog to target epoch
    encke synth [flags] <output>         write a synthetic test catalog
    encke version                        display version and copyright

Either file may be "-" for standard input or output.  Type encke -h for the
full flag list.


Configuration

Every flag may also be given in a YAML file or an environment variable.
The file is ./encke.yaml if present, or the file named with --config.
Keys are flag names.  Environment variables are the flag name upper cased,
with dashes as underscores and prefix ENCKE_.  Flags take precedence over
the environment, which takes precedence over the file.

    target: 2460600.5
    workers: 8
    perturbers: planets,Ceres
    ephemeris: vsop87
    ephemeris-path: /usr/local/share/vsop87

Ephemeris backends for the perturbing bodies are

    kepler   mean planetary elements and the Meeus lunar theory (default)
    vsop87   VSOP87B files in the directory ephemeris-path

Asteroid perturbers are taken from the catalog itself.  Designations 1, 2,
and 4 within the first scan-limit records supply Ceres, Pallas, and Vesta.


File formats

The first non-comment line of the catalog is the header.  Lines before it,
and lines starting with #, are copied to the output.  Required columns are

    Desig Tp Epoch q Incl Node Peri e

Other columns such as RMS, Obs, Arc, H, and G are copied unchanged.  Each
column extends from the start of its header name to the start of the next.
Dates are TT calendar dates, "YYYY MM DD.ddddddd".  Angles are degrees,
J2000 ecliptic.

The output header adds a column Src holding a digest of the input record
and run parameters.  Lines that do not parse are copied unchanged.  Records
already at the target epoch are copied unchanged.


Algorithm outline

Each record is integrated with Encke's method.  The deviation from a
reference two-body orbit is integrated with an embedded Runge-Kutta-Fehlberg
4(5) stepper under adaptive step control.  Integration proceeds in
macro-steps aligned to a grid of the step size; at the end of each the
osculating elements are recomputed from the true state and the deviation
reset to zero.

Perturber positions at every stage time of every grid step are computed
once before the parallel phase and shared read only by all workers.

Close approaches to the planets and the Moon are softened inside 1.2 times
the body radius.  The relativistic correction for the Sun is optional.

When integration fails the record is copied unchanged, or with
--include-unperturbed, propagated two-body.

-------------
Public domain.
*/
package main

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinica/clinic/internal/config"
	"github.com/clinica/clinic/internal/desk/alert"
	"github.com/clinica/clinic/internal/desk/channel"
	"github.com/clinica/clinic/internal/desk/console"
	"github.com/clinica/clinic/internal/desk/records"
	"github.com/clinica/clinic/internal/desk/session"
	"github.com/clinica/clinic/internal/domain/appointment"
	"github.com/clinica/clinic/internal/domain/consultation"
	"github.com/clinica/clinic/internal/platform/auth"
)

var errSignedOut = errors.New("No hay una sesión activa, use `clinic-desk login`")

// desk is what every command needs: settings, the session store and a
// records client that reads its token from the store.
type desk struct {
	cfg    *config.Desk
	store  *session.Store
	client *records.Client
	logger zerolog.Logger
}

func openDesk(verbose bool) (*desk, error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := config.LoadDesk()
	if err != nil {
		return nil, err
	}
	ring, err := session.OpenKeyring(cfg.KeyringDir)
	if err != nil {
		return nil, err
	}
	d := &desk{cfg: cfg, store: session.NewStore(ring, logger), logger: logger}
	d.client = records.New(cfg.APIURL, cfg.RequestTimeout, d.token, logger)
	if _, err := d.store.Restore(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *desk) token() string {
	if s := d.store.Current(); s != nil {
		return s.Token
	}
	return ""
}

func (d *desk) requireSession() (*session.Session, error) {
	sess := d.store.Current()
	if sess == nil {
		return nil, errSignedOut
	}
	return sess, nil
}

func main() {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:           "clinic-desk",
		Short:         "Clinic staff desk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	open := func() (*desk, error) { return openDesk(verbose) }
	rootCmd.AddCommand(
		loginCmd(open),
		logoutCmd(open),
		whoamiCmd(open),
		watchCmd(open),
		notificationsCmd(open),
		vitalsCmd(open),
		exportPrescriptionCmd(open),
		passwordCmd(open),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, records.UserMessage(err))
		os.Exit(1)
	}
}

type opener func() (*desk, error)

func loginCmd(open opener) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session in the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := open()
			if err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv("DESK_PASSWORD")
			}
			sess, err := d.store.Login(cmd.Context(), d.client, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sesión iniciada como %s (%s)\n", sess.Identity.Name, sess.Identity.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Staff email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (defaults to $DESK_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := open()
			if err != nil {
				return err
			}
			if err := d.store.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sesión cerrada")
			return nil
		},
	}
}

func whoamiCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := open()
			if err != nil {
				return err
			}
			sess, err := d.requireSession()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", sess.Identity.Name, sess.Identity.Email, sess.Identity.Role)
			return nil
		},
	}
}

// watchCmd keeps the live channel and the badge poller running until
// interrupted.
func watchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show live alerts and the notification count",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := open()
			if err != nil {
				return err
			}
			if _, err := d.requireSession(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var sound alert.SoundPlayer
			if d.cfg.Sound {
				sound = alert.Bell{W: out}
			}
			c := console.New(d.store, d.client, alert.NewTerminalSink(out, sound, d.logger), console.Options{
				Channel: channel.Options{
					URL:              d.cfg.LiveURL(),
					HandshakeTimeout: d.cfg.HandshakeTimeout,
					MaxReconnects:    d.cfg.ReconnectAttempts,
					Backoff:          d.cfg.ReconnectBackoff,
				},
				PollInterval: d.cfg.PollInterval,
				OnCount: func(n int) {
					fmt.Fprintln(out, badgeLine(n))
				},
			}, d.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The store already holds the restored session; Start replays it
			// into the console.
			if _, err := c.Start(ctx); err != nil {
				return err
			}
			defer c.Stop()

			<-ctx.Done()
			return nil
		},
	}
}

func notificationsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "List the notifications for the signed-in role",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := open()
			if err != nil {
				return err
			}
			if _, err := d.requireSession(); err != nil {
				return err
			}
			c := console.New(d.store, d.client, &alert.Recorder{}, console.Options{}, d.logger)
			defer c.Stop()

			res := c.OpenPanel(cmd.Context())
			printPanel(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func vitalsCmd(open opener) *cobra.Command {
	var form consultation.VitalSignsForm
	var apptID, patientID string
	cmd := &cobra.Command{
		Use:   "vitals",
		Short: "Record vital signs and send the patient to consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := open()
			if err != nil {
				return err
			}
			sess, err := d.requireSession()
			if err != nil {
				return err
			}
			if sess.Identity.Role != auth.RoleNurse && sess.Identity.Role != auth.RoleAdmin {
				return errors.New(records.PermissionDenied)
			}
			appt, err := uuid.Parse(apptID)
			if err != nil {
				return fmt.Errorf("Cita no válida: %q", apptID)
			}
			patient, err := uuid.Parse(patientID)
			if err != nil {
				return fmt.Errorf("Paciente no válido: %q", patientID)
			}

			vitals, verrs := form.Parse()
			if verrs.HasErrors() {
				printFieldErrors(cmd.ErrOrStderr(), verrs)
				return errors.New("Corrija los signos vitales antes de enviar")
			}

			created, err := d.client.CreateConsultation(cmd.Context(), &consultation.Consultation{
				AppointmentID: &appt,
				PatientID:     patient,
				Vitals:        &vitals,
			})
			if err != nil {
				return err
			}
			if _, err := d.client.UpdateAppointmentStatus(cmd.Context(), appt, appointment.StatusInConsultation); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signos vitales registrados (consulta %s)\n", created.ID)
			if vitals.BMI != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "IMC %.2f - %s\n", *vitals.BMI, consultation.BMICategory(*vitals.BMI))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&apptID, "appointment", "", "Appointment ID")
	f.StringVar(&patientID, "patient", "", "Patient ID")
	f.StringVar(&form.BloodPressure, "bp", "", "Blood pressure, e.g. 120/80")
	f.StringVar(&form.HeartRate, "hr", "", "Heart rate (lpm)")
	f.StringVar(&form.RespiratoryRate, "rr", "", "Respiratory rate (rpm)")
	f.StringVar(&form.Temperature, "temp", "", "Temperature (°C)")
	f.StringVar(&form.OxygenSaturation, "spo2", "", "Oxygen saturation (%)")
	f.StringVar(&form.Weight, "weight", "", "Weight (kg)")
	f.StringVar(&form.Height, "height", "", "Height (m)")
	f.StringVar(&form.Notes, "notes", "", "Notes")
	_ = cmd.MarkFlagRequired("appointment")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func exportPrescriptionCmd(open opener) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export-prescription <id>",
		Short: "Download a prescription as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("Receta no válida: %q", args[0])
			}
			d, err := open()
			if err != nil {
				return err
			}
			if _, err := d.requireSession(); err != nil {
				return err
			}
			doc, err := d.client.DownloadPrescriptionPDF(cmd.Context(), id)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, fmt.Sprintf("receta_%s.pdf", id))
			if err := os.WriteFile(path, doc, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Receta guardada en %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Output directory")
	return cmd
}

func passwordCmd(open opener) *cobra.Command {
	var change auth.PasswordChange
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verrs := change.Validate(); verrs.HasErrors() {
				printFieldErrors(cmd.ErrOrStderr(), verrs)
				return errors.New("No se pudo cambiar la contraseña")
			}
			d, err := open()
			if err != nil {
				return err
			}
			if _, err := d.requireSession(); err != nil {
				return err
			}
			if err := d.client.ChangePassword(cmd.Context(), change.Current, change.New, change.Confirm); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Contraseña actualizada")
			return nil
		},
	}
	cmd.Flags().StringVar(&change.Current, "current", "", "Current password")
	cmd.Flags().StringVar(&change.New, "new", "", "New password")
	cmd.Flags().StringVar(&change.Confirm, "confirm", "", "New password again")
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/api"
	"github.com/atikulmunna/pulse/internal/crud"
	"github.com/atikulmunna/pulse/internal/model"
	"github.com/atikulmunna/pulse/internal/output"
)

// listView describes how one collection is fetched and drawn.
type listView[T model.Identified] struct {
	path    string
	headers []string
	row     func(T) []string
}

func (lv listView[T]) load(ctx context.Context) (*crud.Collection[T], error) {
	client, _, err := newClient()
	if err != nil {
		return nil, err
	}
	col := crud.NewCollection[T](client, lv.path, logger.Named("crud"))
	if err := col.Load(ctx); err != nil {
		return nil, err
	}
	return col, nil
}

func (lv listView[T]) render(w io.Writer, items []T) error {
	if jsonOutput() {
		return output.WriteJSON(w, items)
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, lv.row(it))
	}
	_, err := fmt.Fprintln(w, output.Table(lv.headers, rows))
	return err
}

func (lv listView[T]) command(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			col, err := lv.load(ctx)
			if err != nil {
				return err
			}
			return lv.render(cmd.OutOrStdout(), col.Items())
		},
	}
}

var (
	leadsView = listView[model.Lead]{
		path:    api.PathLeads,
		headers: []string{"Fecha", "Nombre", "Empresa", "Interés", "Correo", "Teléfono"},
		row: func(l model.Lead) []string {
			return []string{l.CreatedAt, l.Name, l.Company, l.Interest, l.Email, l.Phone}
		},
	}
	coursesView = listView[model.Registration]{
		path:    api.PathRegistrations,
		headers: []string{"ID", "Alumno", "Correo", "Curso", "Estado", "Fecha"},
		row: func(r model.Registration) []string {
			return []string{r.ID, r.StudentName, r.Email, r.CourseName, r.Status, r.CreatedAt}
		},
	}
	reportsView = listView[model.Report]{
		path:    api.PathReports,
		headers: []string{"Ticket", "Tipo", "Descripción", "Ubicación", "Estado", "Fecha"},
		row: func(r model.Report) []string {
			return []string{r.TicketID, r.ReportType, r.Description, r.Location, r.Status, r.CreatedAt}
		},
	}
	sessionsView = listView[model.SessionSummary]{
		path:    api.PathSessions,
		headers: []string{"Sesión", "Mensajes", "Última actividad"},
		row: func(s model.SessionSummary) []string {
			return []string{s.SessionID, strconv.Itoa(s.MessageCount), s.LastActivity}
		},
	}
	profilesView = listView[model.Profile]{
		path:    api.PathProfiles,
		headers: []string{"Código", "Descripción", "Ejemplos"},
		row: func(p model.Profile) []string {
			return []string{p.Code, p.Description, p.Examples}
		},
	}
	historyView = listView[model.SessionMessage]{
		headers: []string{"Hora", "Usuario", "Asistente", "Intención", "Sentimiento"},
		row: func(m model.SessionMessage) []string {
			return []string{m.Timestamp, m.UserInput, m.BotResponse, m.Metadata.Intent, m.Metadata.Sentiment}
		},
	}
)

func init() {
	coursesCmd := coursesView.command("courses", "List course registrations")
	coursesCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a course registration",
		Args:  cobra.ExactArgs(1),
		RunE:  runCourseDelete,
	})

	sessionsCmd := sessionsView.command("sessions", "List chat sessions")
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the full conversation of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionShow,
	})

	rootCmd.AddCommand(
		leadsView.command("leads", "List captured leads"),
		coursesCmd,
		reportsView.command("reports", "List citizen reports"),
		sessionsCmd,
		profilesView.command("profiles", "List user profile categories"),
		statsCmd,
		intelligenceCmd,
		graphCmd,
	)
}

func runCourseDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	col, err := coursesView.load(ctx)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, args[0]); err != nil {
		return err
	}
	logger.Debug("registration deleted", zap.String("id", args[0]), zap.Int("remaining", len(col.Items())))
	return coursesView.render(cmd.OutOrStdout(), col.Items())
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client, _, err := newClient()
	if err != nil {
		return err
	}
	msgs, err := client.SessionHistory(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := historyView.render(out, msgs); err != nil {
		return err
	}
	if jsonOutput() {
		return nil
	}
	for _, m := range msgs {
		for _, st := range m.Metadata.Steps {
			fmt.Fprintf(out, "  %s [%s] %s (%s)\n", m.Timestamp, st.Step, st.Detail, st.Status)
		}
	}
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the live analytics summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client, _, err := newClient()
		if err != nil {
			return err
		}
		st, err := client.DashboardStats(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput() {
			return output.WriteJSON(out, st)
		}
		fmt.Fprintln(out, output.Table([]string{"Métrica", "Valor"}, [][]string{
			{"Interacciones", strconv.Itoa(st.TotalInteractions)},
			{"Sentimiento promedio", strconv.FormatFloat(st.AverageSentiment, 'f', 2, 64)},
		}))
		fmt.Fprintln(out, output.Table([]string{"Intención", "Total"}, namedRows(st.IntentsDistribution)))
		activity := make([][]string, 0, len(st.RecentActivity))
		for _, a := range st.RecentActivity {
			activity = append(activity, []string{a.Time, a.User, a.Intent})
		}
		fmt.Fprintln(out, output.Table([]string{"Hora", "Usuario", "Intención"}, activity))
		return nil
	},
}

var intelligenceCmd = &cobra.Command{
	Use:   "intelligence",
	Short: "Show business intelligence KPIs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client, _, err := newClient()
		if err != nil {
			return err
		}
		bi, err := client.Intelligence(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput() {
			return output.WriteJSON(out, bi)
		}
		fmt.Fprintln(out, output.Table([]string{"KPI", "Valor"}, [][]string{
			{"Interacciones", strconv.Itoa(bi.KPIs.TotalInteractions)},
			{"Sesiones", strconv.Itoa(bi.KPIs.TotalSessions)},
			{"Sentimiento promedio", strconv.FormatFloat(bi.KPIs.AverageSentiment, 'f', 2, 64)},
		}))
		fmt.Fprintln(out, output.Table([]string{"Intención", "Total"}, namedRows(bi.IntentDistribution)))
		fmt.Fprintln(out, output.Table([]string{"Entidad", "Grupo", "Peso"}, nodeRows(bi.NewEntities)))
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the knowledge graph topology",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client, _, err := newClient()
		if err != nil {
			return err
		}
		g, err := client.Graph(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput() {
			return output.WriteJSON(out, g)
		}
		fmt.Fprintln(out, output.Table([]string{"Nodo", "Grupo", "Peso"}, nodeRows(g.Nodes)))
		links := make([][]string, 0, len(g.Links))
		for _, l := range g.Links {
			links = append(links, []string{l.Source, l.Target})
		}
		fmt.Fprintln(out, output.Table([]string{"Origen", "Destino"}, links))
		return nil
	},
}

func namedRows(vals []model.NamedValue) [][]string {
	rows := make([][]string, 0, len(vals))
	for _, nv := range vals {
		rows = append(rows, []string{nv.Name, strconv.Itoa(nv.Value)})
	}
	return rows
}

func nodeRows(nodes []model.GraphNode) [][]string {
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{n.ID, string(n.Group), strconv.FormatFloat(n.Val, 'f', -1, 64)})
	}
	return rows
}
